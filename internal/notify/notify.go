// Package notify tells the site layer that synced content changed, so it can
// re-render the affected route.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
	"github.com/evolvinglmms-lab/docsync/internal/logfields"
)

// Rerender is the message published after a successful sync.
type Rerender struct {
	Pipeline  string    `json:"pipeline"`
	Path      string    `json:"path"`
	RunID     string    `json:"run_id"`
	Versions  []string  `json:"versions,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier publishes re-render requests.
type Notifier interface {
	NotifyRerender(ctx context.Context, msg Rerender) error
	Close() error
}

// Noop drops every message.
type Noop struct{}

func (Noop) NotifyRerender(context.Context, Rerender) error { return nil }
func (Noop) Close() error                                   { return nil }

// publisher is the subset of *nats.Conn used here.
type publisher interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSNotifier publishes Rerender messages as JSON on a core NATS subject.
type NATSNotifier struct {
	conn    publisher
	subject string
}

// NewNATSNotifier connects to url.
func NewNATSNotifier(url, subject string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("docsync"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS notifier connected", logfields.URL(url), "subject", subject)
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

// NotifyRerender publishes msg and waits for the server to acknowledge the flush.
func (n *NATSNotifier) NotifyRerender(ctx context.Context, msg Rerender) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.InternalError("failed to marshal rerender message").WithCause(err).Build()
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return errors.NetworkError("failed to publish rerender message").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return errors.NetworkError("failed to flush NATS connection").
			WithCause(err).
			WithContext("subject", n.subject).
			Build()
	}
	slog.Debug("Published rerender", logfields.Pipeline(msg.Pipeline), logfields.Path(msg.Path), logfields.RunID(msg.RunID))
	return nil
}

// Close closes the connection.
func (n *NATSNotifier) Close() error {
	n.conn.Close()
	return nil
}
