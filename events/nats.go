package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSUpstream publishes events as JSON on core NATS. Each event goes to
// "<subject>.<type>", so subscribers can filter with wildcards such as
// "cardledger.events.trade.>".
type NATSUpstream struct {
	nc      *nats.Conn
	subject string
}

var _ Upstream = (*NATSUpstream)(nil)

// NewNATSUpstream connects to url.
func NewNATSUpstream(url, subject string) (*NATSUpstream, error) {
	nc, err := nats.Connect(url,
		nats.Name("cardledger"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSUpstream{nc: nc, subject: subject}, nil
}

// Subject returns the NATS subject an event is published on.
func (u *NATSUpstream) Subject(t Type) string {
	return u.subject + "." + string(t)
}

func (u *NATSUpstream) Send(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := u.nc.Publish(u.Subject(e.Type), data); err != nil {
		return fmt.Errorf("failed to publish to NATS: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (u *NATSUpstream) Close() error {
	if u.nc == nil {
		return nil
	}
	return u.nc.Drain()
}
