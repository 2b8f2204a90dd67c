package livedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atiselsts/cex-dex-arbitrage-anatomy/internal/observability"
)

// Trade stream errors.
var (
	ErrInsufficientTrades = errors.New("not enough trades to estimate volatility")
	ErrInvalidTradePrice  = errors.New("trade price must be positive")
)

const secondsPerYear = 365.25 * 24 * 3600

// VolatilityEstimator accumulates log returns from observed trades and
// produces an annualized realized volatility. Safe for concurrent use.
type VolatilityEstimator struct {
	mu sync.Mutex

	lastPrice float64
	numTrades int
	sumSqLog  float64

	firstAt time.Time
	lastAt  time.Time
}

// NewVolatilityEstimator creates an empty estimator.
func NewVolatilityEstimator() *VolatilityEstimator {
	return &VolatilityEstimator{}
}

// Observe records one trade. Non-positive prices are rejected.
func (e *VolatilityEstimator) Observe(price float64, at time.Time) error {
	if price <= 0 {
		return ErrInvalidTradePrice
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.numTrades == 0 {
		e.firstAt = at
	} else {
		r := math.Log(price / e.lastPrice)
		e.sumSqLog += r * r
	}
	e.lastPrice = price
	e.lastAt = at
	e.numTrades++
	return nil
}

// NumTrades returns the number of observed trades.
func (e *VolatilityEstimator) NumTrades() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numTrades
}

// AnnualizedVolatility returns sqrt of the realized variance scaled to one
// year. At least two trades spanning a positive interval are required.
func (e *VolatilityEstimator) AnnualizedVolatility() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := e.lastAt.Sub(e.firstAt).Seconds()
	if e.numTrades < 2 || elapsed <= 0 {
		return 0, ErrInsufficientTrades
	}

	years := elapsed / secondsPerYear
	return math.Sqrt(e.sumSqLog / years), nil
}

// tradeMessage is the subset of a CEX trade event we consume. The field
// names follow the Binance trade stream payload.
type tradeMessage struct {
	Price   string `json:"p"`
	TradeMs int64  `json:"T"`
}

// parseTrade extracts price and timestamp from a raw trade message.
func parseTrade(data []byte) (float64, time.Time, error) {
	var msg tradeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return 0, time.Time{}, fmt.Errorf("unmarshal trade message: %w", err)
	}

	price, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse trade price %q: %w", msg.Price, err)
	}

	return price, time.UnixMilli(msg.TradeMs), nil
}

// TradeStreamOptions configures a TradeStream.
type TradeStreamOptions struct {
	// URL is the websocket endpoint of the trade feed.
	URL string
	// MaxTrades stops the stream after this many trades when positive.
	MaxTrades int
	// ReadTimeout bounds each read; zero means 60s.
	ReadTimeout time.Duration
}

// TradeStream consumes a CEX websocket trade feed and feeds every trade
// into a VolatilityEstimator.
type TradeStream struct {
	opts      TradeStreamOptions
	estimator *VolatilityEstimator
}

// NewTradeStream creates a stream feeding the given estimator.
func NewTradeStream(opts TradeStreamOptions, estimator *VolatilityEstimator) *TradeStream {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	return &TradeStream{opts: opts, estimator: estimator}
}

// Run connects and consumes trades until the context is cancelled, the
// trade budget is exhausted or the connection fails. A normal websocket
// close and a reached trade budget both return nil.
func (s *TradeStream) Run(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	// Unblock the read loop on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	trades := 0
	for {
		conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			observability.RecordTradeStreamError()
			return fmt.Errorf("read trade message: %w", err)
		}

		price, at, err := parseTrade(message)
		if err != nil {
			observability.RecordTradeStreamError()
			continue
		}
		if err := s.estimator.Observe(price, at); err != nil {
			observability.RecordTradeStreamError()
			continue
		}
		observability.RecordTradeStreamEvent()

		trades++
		if s.opts.MaxTrades > 0 && trades >= s.opts.MaxTrades {
			return nil
		}
	}
}
