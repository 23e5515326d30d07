package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/jdziat/simple-refresh/pkg/core"
	"github.com/jdziat/simple-refresh/pkg/security"
)

// MessageActivity is the message type that produces a hint.
const MessageActivity = "activity"

// maxMessageSize bounds a single hint message.
const maxMessageSize = 64 << 10

// Message is one server-pushed notification.
type Message struct {
	Type string    `json:"type"`
	Kind core.Kind `json:"kind,omitempty"`
}

// Hinter receives hints. *coordinator.Coordinator satisfies it.
type Hinter interface {
	Hint(ctx context.Context, kind core.Kind) (map[core.Kind]core.Outcome, error)
}

// Stats are the listener's counters.
type Stats struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`
	Connects  int64  `json:"connects"`
	Messages  int64  `json:"messages"`
	Malformed int64  `json:"malformed"`
}

// Listener maintains the WebSocket connection and forwards hints.
type Listener struct {
	id      string
	url     string
	hinter  Hinter
	logger  *slog.Logger
	backoff BackoffConfig
	header  http.Header
	client  *http.Client

	connected atomic.Bool
	connects  atomic.Int64
	messages  atomic.Int64
	malformed atomic.Int64
}

// New creates a Listener for the WebSocket at url.
func New(url string, hinter Hinter, opts ...Option) *Listener {
	l := &Listener{
		id:      uuid.New().String(),
		url:     url,
		hinter:  hinter,
		logger:  slog.Default(),
		backoff: DefaultBackoffConfig(),
		header:  http.Header{},
	}
	for _, opt := range opts {
		opt.apply(l)
	}
	l.logger = l.logger.With("listener_id", l.id)
	return l
}

// ID returns the listener's unique identifier.
func (l *Listener) ID() string { return l.id }

// Run connects and reads messages until ctx is cancelled, reconnecting with
// exponential backoff. It always returns ctx.Err().
func (l *Listener) Run(ctx context.Context) error {
	b := newBackoff(l.backoff)
	l.logger.Info("push listener started", "url", l.url)

	for {
		err := l.session(ctx, b)
		if ctx.Err() != nil {
			l.logger.Info("push listener stopped")
			return ctx.Err()
		}
		l.logger.Warn("push connection lost", "error", security.SanitizeErrorMessage(err.Error()))

		if err := b.wait(ctx); err != nil {
			l.logger.Info("push listener stopped")
			return err
		}
	}
}

// session dials once and reads until the connection fails. The backoff is
// reset once a connection is established.
func (l *Listener) session(ctx context.Context, b *backoff) error {
	conn, _, err := websocket.Dial(ctx, l.url, &websocket.DialOptions{
		HTTPClient: l.client,
		HTTPHeader: l.header,
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() {
		_ = conn.CloseNow()
	}()
	conn.SetReadLimit(maxMessageSize)

	b.reset()
	l.connects.Add(1)
	l.connected.Store(true)
	defer l.connected.Store(false)
	l.logger.Debug("push connected")

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return errors.New("server closed connection")
			}
			return fmt.Errorf("read: %w", err)
		}
		if typ != websocket.MessageText {
			l.malformed.Add(1)
			continue
		}
		l.handle(ctx, data)
	}
}

func (l *Listener) handle(ctx context.Context, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		l.malformed.Add(1)
		l.logger.Debug("malformed push message", "error", err)
		return
	}
	l.messages.Add(1)

	if msg.Type != MessageActivity {
		return
	}

	outcomes, err := l.hinter.Hint(ctx, msg.Kind)
	if err != nil {
		l.logger.Debug("hint ignored", "kind", security.SanitizeLabel(string(msg.Kind)), "error", err)
		return
	}
	for kind, outcome := range outcomes {
		l.logger.Debug("hint handled", "kind", string(kind), "outcome", string(outcome))
	}
}

// Stats returns the current counters.
func (l *Listener) Stats() Stats {
	return Stats{
		ID:        l.id,
		Connected: l.connected.Load(),
		Connects:  l.connects.Load(),
		Messages:  l.messages.Load(),
		Malformed: l.malformed.Load(),
	}
}
