// Package bus publishes completed turns to a websocket hub.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	ws "github.com/gorilla/websocket"

	"scing/internal/session"
)

const KindTurn = "turn"

type Message struct {
	From    string        `json:"from"`
	To      string        `json:"to"`
	Kind    string        `json:"kind"`
	Content string        `json:"content"`
	Turn    *session.Turn `json:"turn,omitempty"`
}

type Bus struct {
	url  string
	from string

	writeTimeout time.Duration
	dialer       *ws.Dialer

	mu     sync.Mutex
	conn   *ws.Conn
	broken atomic.Bool
}

func Dial(ctx context.Context, url, from string) (*Bus, error) {
	b := &Bus{
		url:          url,
		from:         from,
		writeTimeout: 5 * time.Second,
		dialer:       ws.DefaultDialer,
	}
	if err := b.connect(ctx); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", url)
	return b, nil
}

func (b *Bus) connect(ctx context.Context) error {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial bus %s: %w", b.url, err)
	}
	b.conn = conn
	b.broken.Store(false)
	go b.readLoop(conn)
	return nil
}

// readLoop drains the hub side of conn so close and ping frames are
// handled. Any read error marks the connection for redial.
func (b *Bus) readLoop(conn *ws.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if IsClosed(err) {
				log.Info("Bus closed by hub", "url", b.url)
			} else {
				log.Debug("Bus read failed", "err", err)
			}
			b.mu.Lock()
			if b.conn == conn {
				b.broken.Store(true)
			}
			b.mu.Unlock()
			return
		}
	}
}

// Publish sends t to every listener on the hub. A connection the hub has
// closed, or one that fails the write, is redialled once.
func (b *Bus) Publish(ctx context.Context, t session.Turn) error {
	payload, err := json.Marshal(Message{
		From:    b.from,
		To:      "*",
		Kind:    KindTurn,
		Content: t.Reply,
		Turn:    &t,
	})
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken.Load() {
		b.conn.Close()
		if err := b.connect(ctx); err != nil {
			return err
		}
	}

	if err := b.write(payload); err != nil {
		log.Debug("Bus write failed, reconnecting", "err", err)
		b.conn.Close()
		if err := b.connect(ctx); err != nil {
			return err
		}
		return b.write(payload)
	}
	return nil
}

func (b *Bus) write(payload []byte) error {
	if b.writeTimeout > 0 {
		_ = b.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	}
	return b.conn.WriteMessage(ws.TextMessage, payload)
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.conn.WriteControl(ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return b.conn.Close()
}

// IsClosed reports whether err is an orderly or abrupt close of the peer.
func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
