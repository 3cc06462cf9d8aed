package brokerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"tradingbotv1/internal/model"

	"github.com/gorilla/websocket"
)

const (
	heartbeatInterval = 10 * time.Second
	writeDeadline     = 5 * time.Second
	readDeadline      = 30 * time.Second

	// Exponential backoff for reconnects, capped.
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// StreamConfig configures the quote stream.
type StreamConfig struct {
	URL       string // wss endpoint
	APIKey    string
	FeedToken string
	Symbol    string
}

// Stream maintains a WebSocket subscription for one symbol's live quotes,
// reconnecting with exponential backoff on any failure. Parsed quotes are
// delivered through the OnQuote callback; dropped ticks are the callback's
// problem, the stream never blocks on it.
type Stream struct {
	cfg StreamConfig

	// OnQuote is invoked for each parsed quote. Must not block.
	OnQuote func(model.Quote)

	// OnConnect and OnDisconnect track connection state transitions for
	// health reporting. Either may be nil.
	OnConnect    func()
	OnDisconnect func()

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStream creates a stream; Run starts it.
func NewStream(cfg StreamConfig) *Stream {
	return &Stream{cfg: cfg}
}

type wireQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume"`
	TS     int64   `json:"ts"`
}

// Run connects and consumes quotes until ctx is cancelled. Reconnects
// forever on errors; never returns a connection error to the caller.
func (s *Stream) Run(ctx context.Context) {
	backoff := reconnectBase
	for {
		if err := s.connectAndConsume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[stream] %s disconnected: %v (retry in %v)", s.cfg.Symbol, err, backoff)
			if s.OnDisconnect != nil {
				s.OnDisconnect()
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > reconnectMax {
				backoff = reconnectMax
			}
			continue
		}
		return // clean shutdown
	}
}

func (s *Stream) connectAndConsume(ctx context.Context) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.FeedToken)
	header.Set("X-API-Key", s.cfg.APIKey)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("dial: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	log.Printf("[stream] %s connected to %s", s.cfg.Symbol, s.cfg.URL)
	if s.OnConnect != nil {
		s.OnConnect()
	}

	// Subscribe to the single symbol.
	sub := map[string]any{"action": "subscribe", "symbols": []string{s.cfg.Symbol}}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	// Close the connection when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go s.heartbeatLoop(ctx, conn, done)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		var wq wireQuote
		if err := json.Unmarshal(raw, &wq); err != nil {
			log.Printf("[stream] %s bad frame: %v", s.cfg.Symbol, err)
			continue
		}
		if wq.Symbol == "" || wq.Price <= 0 {
			continue // control frame or junk tick
		}
		if s.OnQuote != nil {
			s.OnQuote(model.Quote{
				Symbol: wq.Symbol,
				Price:  wq.Price,
				Volume: wq.Volume,
				TS:     time.Unix(wq.TS, 0).UTC(),
			})
		}
	}
}

func (s *Stream) heartbeatLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
