package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/market"
)

// Connector is a protocol client the Supervisor can redial. Satisfied by
// polymarket.WSClient.
type Connector interface {
	// ConnectAndSubscribe dials and subscribes; failures before the loops
	// start are returned synchronously.
	ConnectAndSubscribe(ctx context.Context, assetIDs []string, events chan<- market.Event) error

	// Done is closed when the current connection terminates.
	Done() <-chan struct{}

	// Disconnect closes the connection cleanly.
	Disconnect() error
}

// ReconnectPolicy controls the Supervisor's redial behavior.
type ReconnectPolicy struct {
	// InitialDelay is the backoff before the first redial; it doubles per
	// consecutive failure up to MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// MaxAttempts bounds consecutive failed redials; 0 means unlimited.
	MaxAttempts int
}

// DefaultReconnectPolicy returns the standard backoff schedule.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  0,
	}
}

// Supervisor owns the reconnection policy for one protocol client. The
// client itself never redials: when its connection dies the Supervisor
// emits a Reconnecting status event with the attempt number, backs off
// exponentially, and dials again. A successful connection resets the
// attempt counter.
type Supervisor struct {
	platform market.Platform
	conn     Connector
	assets   []string
	policy   ReconnectPolicy
	events   chan<- market.Event
}

// NewSupervisor wraps a connector with a reconnection policy. The events
// channel is the same one the connector publishes to, so Reconnecting
// events interleave with the client's own status events.
func NewSupervisor(platform market.Platform, conn Connector, assets []string, policy ReconnectPolicy, events chan<- market.Event) *Supervisor {
	return &Supervisor{
		platform: platform,
		conn:     conn,
		assets:   assets,
		policy:   policy,
		events:   events,
	}
}

// Run connects and keeps the connection alive until ctx is cancelled. It
// returns nil on cancellation and an error only when MaxAttempts
// consecutive redials have failed.
func (s *Supervisor) Run(ctx context.Context) error {
	attempt := 0

	for {
		err := s.conn.ConnectAndSubscribe(ctx, s.assets, s.events)
		if err == nil {
			attempt = 0
			log.Printf("supervisor: %s connected", s.platform)

			select {
			case <-ctx.Done():
				s.conn.Disconnect()
				return nil
			case <-s.conn.Done():
				log.Printf("supervisor: %s connection lost", s.platform)
			}
		} else {
			log.Printf("supervisor: %s dial failed: %v", s.platform, err)
		}

		attempt++
		if s.policy.MaxAttempts > 0 && attempt > s.policy.MaxAttempts {
			if err == nil {
				err = errors.New("connection lost")
			}
			return fmt.Errorf("supervisor: %s: gave up after %d attempts: %w",
				s.platform, s.policy.MaxAttempts, err)
		}

		s.events <- market.NewStatusEvent(market.ConnectionStatus{
			Platform: s.platform,
			State:    market.Reconnecting,
			Attempt:  attempt,
		})

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.backoff(attempt)):
		}
	}
}

// backoff doubles the initial delay per consecutive failure, capped at
// MaxDelay.
func (s *Supervisor) backoff(attempt int) time.Duration {
	delay := s.policy.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.policy.MaxDelay {
			return s.policy.MaxDelay
		}
	}
	if s.policy.MaxDelay > 0 && delay > s.policy.MaxDelay {
		return s.policy.MaxDelay
	}
	return delay
}
