package signer

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func testDomain() *DomainData {
	return &DomainData{
		Name:              "ClobExchange",
		Version:           "1",
		ChainID:           big.NewInt(137),
		VerifyingContract: common.HexToAddress("0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"),
	}
}

func testOrder(maker common.Address) *OrderData {
	return &OrderData{
		Salt:          big.NewInt(1),
		Maker:         maker,
		Signer:        maker,
		Taker:         common.Address{},
		TokenID:       big.NewInt(12345),
		MakerAmount:   big.NewInt(45_000_000),
		TakerAmount:   big.NewInt(100_000_000),
		Expiration:    new(big.Int),
		Nonce:         big.NewInt(1),
		FeeRateBps:    new(big.Int),
		Side:          0,
		SignatureType: 0,
	}
}

func activatedSession(t *testing.T, ttl time.Duration, limit *big.Int) (*SessionManager, common.Address) {
	t.Helper()
	privKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := crypto.PubkeyToAddress(privKey.PublicKey)

	sm := NewSessionManager(ttl)
	if err := sm.Activate(crypto.FromECDSA(privKey), limit); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return sm, addr
}

func TestSessionManager_SignatureRecoversSessionAddress(t *testing.T) {
	limit := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e6))
	sm, addr := activatedSession(t, 10*time.Minute, limit)

	domain := testDomain()
	order := testOrder(addr)

	sig, err := sm.Sign(big.NewInt(45_000_000), domain, order)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("signature length = %d, want 65", len(sig))
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("v = %d, want 27 or 28", sig[64])
	}

	// Recover the signer from the digest and compare addresses.
	digest := eip712Digest(hashDomain(domain), hashOrder(order))
	recoverable := make([]byte, 65)
	copy(recoverable, sig)
	recoverable[64] -= 27
	pub, err := crypto.SigToPub(digest[:], recoverable)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != addr {
		t.Errorf("recovered %s, want %s", got.Hex(), addr.Hex())
	}
}

func TestSessionManager_NoSession(t *testing.T) {
	sm := NewSessionManager(time.Minute)
	_, err := sm.Sign(big.NewInt(1), testDomain(), testOrder(common.Address{}))
	if !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Sign() = %v, want ErrNoActiveSession", err)
	}
}

func TestSessionManager_TTLExpiry(t *testing.T) {
	sm, addr := activatedSession(t, time.Minute, big.NewInt(1e12))

	var mu sync.Mutex
	now := time.Now()
	sm.nowFunc = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	// Re-activate under the fake clock so expiry is deterministic.
	privKey, _ := crypto.GenerateKey()
	sm.Activate(crypto.FromECDSA(privKey), big.NewInt(1e12))

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	_, err := sm.Sign(big.NewInt(1), testDomain(), testOrder(addr))
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("Sign() = %v, want ErrSessionExpired", err)
	}

	// Expiry destroys the session.
	if st := sm.Status(); st.Active {
		t.Error("session still active after expiry")
	}
}

func TestSessionManager_ValueLimit(t *testing.T) {
	sm, addr := activatedSession(t, 10*time.Minute, big.NewInt(100_000_000)) // 100 USDC

	domain := testDomain()
	order := testOrder(addr)

	if _, err := sm.Sign(big.NewInt(60_000_000), domain, order); err != nil {
		t.Fatalf("first sign: %v", err)
	}
	if _, err := sm.Sign(big.NewInt(60_000_000), domain, order); !errors.Is(err, ErrValueLimitExceeded) {
		t.Fatalf("second sign = %v, want ErrValueLimitExceeded", err)
	}
	// A rejected order must not consume limit.
	if _, err := sm.Sign(big.NewInt(40_000_000), domain, order); err != nil {
		t.Fatalf("third sign: %v", err)
	}

	st := sm.Status()
	if st.ValueUsed != "100000000" {
		t.Errorf("value used = %s, want 100000000", st.ValueUsed)
	}
}

func TestSessionManager_Destroy(t *testing.T) {
	sm, addr := activatedSession(t, time.Minute, big.NewInt(1e12))
	sm.Destroy()

	if st := sm.Status(); st.Active {
		t.Error("session active after destroy")
	}
	if _, err := sm.Sign(big.NewInt(1), testDomain(), testOrder(addr)); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("Sign() = %v, want ErrNoActiveSession", err)
	}
}
