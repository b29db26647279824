package polymarket

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// Credentials holds a Polymarket L2 API credential set. The secret is kept
// encrypted at rest in a memguard Enclave and only opened while signing.
type Credentials struct {
	APIKey     string
	Passphrase string
	secret     *memguard.Enclave
}

// NewCredentials seals the base64-encoded API secret into locked memory.
// The caller should discard their copy of secret after this returns.
func NewCredentials(apiKey, secret, passphrase string) (*Credentials, error) {
	if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
		return nil, fmt.Errorf("polymarket: secret is not valid base64: %w", err)
	}
	return &Credentials{
		APIKey:     apiKey,
		Passphrase: passphrase,
		secret:     memguard.NewEnclave([]byte(secret)),
	}, nil
}

// Sign computes the HMAC-SHA256 request signature over
// timestamp + METHOD + path + body using the base64-decoded secret,
// returning the base64-encoded digest.
func Sign(secret string, timestamp int64, method, path, body string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("polymarket: decode secret: %w", err)
	}

	message := strconv.FormatInt(timestamp, 10) + strings.ToUpper(method) + path + body

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Headers produces the authentication header set for one request. The
// enclave is opened only for the duration of the signature computation.
func (c *Credentials) Headers(method, path, body string) (http.Header, error) {
	buf, err := c.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("polymarket: open secret enclave: %w", err)
	}
	defer buf.Destroy()

	timestamp := time.Now().Unix()
	signature, err := Sign(buf.String(), timestamp, method, path, body)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("POLY_API_KEY", c.APIKey)
	headers.Set("POLY_SIGNATURE", signature)
	headers.Set("POLY_TIMESTAMP", strconv.FormatInt(timestamp, 10))
	headers.Set("POLY_PASSPHRASE", c.Passphrase)
	return headers, nil
}

// subscriptionAuth materializes the credential object embedded in
// user-channel subscription payloads.
func (c *Credentials) subscriptionAuth() (*wsAuth, error) {
	buf, err := c.secret.Open()
	if err != nil {
		return nil, fmt.Errorf("polymarket: open secret enclave: %w", err)
	}
	defer buf.Destroy()

	return &wsAuth{
		APIKey:     c.APIKey,
		Secret:     buf.String(),
		Passphrase: c.Passphrase,
	}, nil
}
