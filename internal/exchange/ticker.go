package exchange

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// markStaleness bounds how old a streamed mark price may be before
// REST fallback takes over.
const markStaleness = 3 * time.Second

// MarkFeed streams mark prices from the Delta Exchange public
// websocket. It is optional: when disconnected or stale, callers fall
// back to REST tickers.
type MarkFeed struct {
	socketURL string
	logger    zerolog.Logger

	conn      *websocket.Conn
	connected bool
	symbols   []string
	prices    map[string]markTick

	cancel context.CancelFunc
	mu     sync.RWMutex
}

type markTick struct {
	price float64
	at    time.Time
}

// tickerMessage is the v2/ticker channel payload.
type tickerMessage struct {
	Type      string          `json:"type"`
	Symbol    string          `json:"symbol"`
	MarkPrice decimal.Decimal `json:"mark_price"`
}

type subscribeMessage struct {
	Type    string `json:"type"`
	Payload struct {
		Channels []subscribeChannel `json:"channels"`
	} `json:"payload"`
}

type subscribeChannel struct {
	Name    string   `json:"name"`
	Symbols []string `json:"symbols"`
}

// NewMarkFeed creates a mark price feed for the given contracts.
func NewMarkFeed(socketURL string, symbols []string, logger zerolog.Logger) *MarkFeed {
	return &MarkFeed{
		socketURL: socketURL,
		symbols:   symbols,
		prices:    make(map[string]markTick),
		logger:    logger,
	}
}

// Connect dials the socket, subscribes, and starts the read loop.
func (f *MarkFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.socketURL, nil)
	if err != nil {
		return err
	}

	sub := subscribeMessage{Type: "subscribe"}
	sub.Payload.Channels = []subscribeChannel{{Name: "v2/ticker", Symbols: f.symbols}}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	f.conn = conn
	f.connected = true
	f.cancel = cancel

	go f.readLoop(loopCtx, conn)
	return nil
}

// Disconnect closes the socket.
func (f *MarkFeed) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil
	}
	f.connected = false
	f.cancel()
	return f.conn.Close()
}

// LastPrice returns the latest streamed mark price for a contract,
// or false when none is fresh enough.
func (f *MarkFeed) LastPrice(symbol string) (float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	tick, ok := f.prices[symbol]
	if !ok || time.Since(tick.at) > markStaleness {
		return 0, false
	}
	return tick.price, true
}

func (f *MarkFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			f.connected = false
			f.mu.Unlock()
			f.logger.Warn().Err(err).Msg("mark feed closed")
			return
		}

		var msg tickerMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "v2/ticker" {
			continue
		}
		price, _ := msg.MarkPrice.Float64()
		if price <= 0 {
			continue
		}

		f.mu.Lock()
		f.prices[msg.Symbol] = markTick{price: price, at: time.Now()}
		f.mu.Unlock()
	}
}
