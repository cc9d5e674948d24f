package ingress

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signalforge/internal/logging"
	"signalforge/internal/market"
)

// StreamConfig tunes the reconnect policy.
type StreamConfig struct {
	BaseURL         string
	InitialBackoff  time.Duration // default 5s
	MaxBackoff      time.Duration // default 60s
	MaxRetries      int           // -1 = infinite
}

func DefaultStreamConfig(baseURL string) StreamConfig {
	return StreamConfig{
		BaseURL:        baseURL,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     60 * time.Second,
		MaxRetries:     -1,
	}
}

// klineFrame mirrors the combined-stream envelope from spec §6:
// {stream: "<symbol>@kline_<interval>", data: {k: {t,T,o,h,l,c,v,q,n,x}}}.
type klineFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		K struct {
			T  int64  `json:"t"`
			T2 int64  `json:"T"`
			O  string `json:"o"`
			H  string `json:"h"`
			L  string `json:"l"`
			C  string `json:"c"`
			V  string `json:"v"`
			Q  string `json:"q"`
			N  int64  `json:"n"`
			X  bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

// StreamClient maintains one multiplexed WebSocket connection
// carrying every subscribed (symbol, interval) kline stream, with a
// genuine exponential-backoff reconnect loop (5s -> 60s, doubling,
// reset on success) replacing the reference implementation's fixed
// 5s/3s reconnect delays.
type StreamClient struct {
	cfg  StreamConfig
	log  *logging.Logger
	keys []market.Key

	mu      sync.Mutex
	conn    *websocket.Conn
	closed  bool
}

func NewStreamClient(cfg StreamConfig, keys []market.Key, log *logging.Logger) *StreamClient {
	if log == nil {
		log = logging.Default()
	}
	return &StreamClient{cfg: cfg, keys: keys, log: log}
}

func (s *StreamClient) streamURL() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = fmt.Sprintf("%s@kline_%s", strings.ToLower(k.Symbol), k.Interval)
	}
	return fmt.Sprintf("%s/stream?streams=%s", s.cfg.BaseURL, strings.Join(parts, "/"))
}

// Run connects and dispatches closed-or-updated candles to onCandle
// until ctx is cancelled or Stop is called. It never returns except
// on ctx cancellation, retry exhaustion, or Stop.
func (s *StreamClient) Run(ctx context.Context, onCandle func(market.Candle)) error {
	delay := s.cfg.InitialBackoff
	attempts := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.streamURL(), nil)
		if err != nil {
			attempts++
			if s.cfg.MaxRetries >= 0 && attempts > s.cfg.MaxRetries {
				return fmt.Errorf("stream connect failed after %d attempts: %w", attempts, err)
			}
			s.log.WithComponent("ingress").Warn("stream connect failed, backing off", "attempt", attempts, "delay", delay, "error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay = nextBackoff(delay, s.cfg.MaxBackoff)
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		attempts = 0
		delay = s.cfg.InitialBackoff // reset on successful connection
		logging.WebSocketContext(len(s.keys)).Info("stream connected")

		readErr := s.readLoop(ctx, conn, onCandle)
		conn.Close()

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		s.log.WithComponent("ingress").Warn("stream connection lost, reconnecting", "error", readErr)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = nextBackoff(delay, s.cfg.MaxBackoff)
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func (s *StreamClient) readLoop(ctx context.Context, conn *websocket.Conn, onCandle func(market.Candle)) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		candle, ok := parseFrame(message)
		if !ok {
			s.log.WithComponent("ingress").Warn("dropped unparseable frame")
			continue
		}
		onCandle(candle)
	}
}

func parseFrame(message []byte) (market.Candle, bool) {
	var frame klineFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		return market.Candle{}, false
	}
	idx := strings.Index(frame.Stream, "@kline_")
	if idx < 0 {
		return market.Candle{}, false
	}
	symbol := strings.ToUpper(frame.Stream[:idx])
	interval := frame.Stream[idx+len("@kline_"):]

	k := frame.Data.K
	return market.Candle{
		Symbol:      symbol,
		Interval:    interval,
		OpenTime:    k.T,
		CloseTime:   k.T2,
		Open:        parseFloat(k.O),
		High:        parseFloat(k.H),
		Low:         parseFloat(k.L),
		Close:       parseFloat(k.C),
		Volume:      parseFloat(k.V),
		QuoteVolume: parseFloat(k.Q),
		TradeCount:  k.N,
		IsClosed:    k.X,
	}, true
}

// Stop closes the active connection and prevents further reconnects.
func (s *StreamClient) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.Close()
	}
}
