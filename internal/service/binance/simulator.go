package binance

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/pkg/logger"
)

// Simulator is a synthetic trade stream used when the real source cannot be
// reached. It runs a random walk from a fixed starting price at a 1s cadence,
// with an occasional large jump so the anomaly detector has something to
// find. The randomness source is injected so tests stay deterministic.
type Simulator struct {
	symbol    string
	rng       *rand.Rand
	lgr       *logger.Logger
	connected bool
}

// NewSimulator creates a market simulator for symbol.
func NewSimulator(symbol string, rng *rand.Rand, lgr *logger.Logger) drepo.MarketStream {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{symbol: strings.ToUpper(symbol), rng: rng, lgr: lgr}
}

// Connect always succeeds.
func (s *Simulator) Connect(ctx context.Context) error {
	s.connected = true
	s.lgr.Info("market: running simulator", logger.String("symbol", s.symbol))
	return nil
}

// Subscribe is a no-op for the simulator.
func (s *Simulator) Subscribe(ctx context.Context) error { return nil }

// Read generates synthetic trades until ctx is cancelled.
func (s *Simulator) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(trades)
		defer close(errs)
		price := 65000.0
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}

			change := s.rng.Float64()*200 - 100
			if s.rng.Float64() < 0.05 {
				change *= 10
			}
			price += change

			select {
			case trades <- &models.Trade{
				Symbol:    s.symbol,
				Price:     price,
				Quantity:  0.01 + s.rng.Float64()*0.99,
				TradeTime: time.Now().UnixMilli(),
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return trades, errs
}

// Close marks the simulator disconnected.
func (s *Simulator) Close() error {
	s.connected = false
	return nil
}

// IsConnected indicates status.
func (s *Simulator) IsConnected() bool { return s.connected }
