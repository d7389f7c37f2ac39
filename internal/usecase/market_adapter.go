package usecase

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/internal/services/analytics"
	"StreamPulse/pkg/logger"
)

// MarketAdapter drives the trade feed: connect with retries, subscribe,
// consume, reconnect with a fixed delay and fall back to the random-walk
// simulator when the exchange stays unreachable. Each trade runs through
// the rolling Z-score detector before publishing.
type MarketAdapter struct {
	stream    drepo.MarketStream
	simulator drepo.MarketStream
	detector  *analytics.MarketAnomalyDetector
	processor *EventProcessor
	metrics   drepo.Metrics
	lgr       *logger.Logger

	connectAttempts int
	reconnectDelay  time.Duration

	state       atomic.Int32
	eventsOut   atomic.Uint64
	lastEventAt atomic.Uint64
}

type MarketAdapterConfig struct {
	ConnectAttempts int
	ReconnectDelay  time.Duration
}

func NewMarketAdapter(
	stream drepo.MarketStream,
	simulator drepo.MarketStream,
	detector *analytics.MarketAnomalyDetector,
	processor *EventProcessor,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	cfg MarketAdapterConfig,
) *MarketAdapter {
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 3
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	return &MarketAdapter{
		stream:          stream,
		simulator:       simulator,
		detector:        detector,
		processor:       processor,
		metrics:         metrics,
		lgr:             lgr,
		connectAttempts: cfg.ConnectAttempts,
		reconnectDelay:  cfg.ReconnectDelay,
	}
}

func (a *MarketAdapter) Run(ctx context.Context) {
	for {
		if !a.connect(ctx) {
			if ctx.Err() != nil {
				a.setState(StateDisconnected)
				return
			}
			a.simulate(ctx)
			return
		}

		a.setState(StateConsuming)
		err := a.consume(ctx, a.stream)
		_ = a.stream.Close()
		if ctx.Err() != nil {
			a.setState(StateDisconnected)
			return
		}
		a.lgr.Warn("market stream lost, reconnecting", logger.Error(err))
		a.metrics.RecordError("market_stream")
		a.setState(StateReconnecting)
		if !sleep(ctx, a.reconnectDelay) {
			a.setState(StateDisconnected)
			return
		}
	}
}

func (a *MarketAdapter) connect(ctx context.Context) bool {
	a.setState(StateConnecting)
	for attempt := 1; attempt <= a.connectAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if err := a.connectOnce(ctx); err != nil {
			a.lgr.Warn("market connect failed",
				logger.Int("attempt", attempt),
				logger.Error(err))
			a.metrics.RecordError("market_connect")
			if !sleep(ctx, a.reconnectDelay) {
				return false
			}
			continue
		}
		return true
	}
	return false
}

func (a *MarketAdapter) connectOnce(ctx context.Context) error {
	if err := a.stream.Connect(ctx); err != nil {
		return err
	}
	a.setState(StateConnected)
	if err := a.stream.Subscribe(ctx); err != nil {
		_ = a.stream.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (a *MarketAdapter) simulate(ctx context.Context) {
	a.setState(StateSimulating)
	a.lgr.Warn("market adapter falling back to simulator")
	if err := a.simulator.Connect(ctx); err != nil {
		a.lgr.Error("market simulator start failed", logger.Error(err))
		return
	}
	_ = a.simulator.Subscribe(ctx)
	_ = a.consume(ctx, a.simulator)
	_ = a.simulator.Close()
	if ctx.Err() != nil {
		return
	}
	a.lgr.Error("market simulator stopped unexpectedly")
}

func (a *MarketAdapter) consume(ctx context.Context, stream drepo.MarketStream) error {
	trades, errs := stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return fmt.Errorf("market stream closed")
			}
			return err
		case trade, ok := <-trades:
			if !ok {
				return fmt.Errorf("market stream closed")
			}
			a.handle(ctx, trade)
		}
	}
}

func (a *MarketAdapter) handle(ctx context.Context, trade *models.Trade) {
	ev := a.normalize(trade)
	a.metrics.RecordLastPrice(trade.Symbol, trade.Price)
	if err := a.processor.Process(ctx, ev); err != nil {
		a.lgr.Error("market event dropped", logger.String("event_id", ev.EventID), logger.Error(err))
		return
	}
	a.eventsOut.Add(1)
	a.lastEventAt.Store(math.Float64bits(ev.Timestamp))
}

func (a *MarketAdapter) normalize(trade *models.Trade) *models.NormalizedEvent {
	ev := &models.NormalizedEvent{
		Source:    models.SourceMarket,
		Kind:      "trade",
		EventID:   strconv.FormatInt(trade.TradeTime, 10),
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Payload: models.TradePayload{
			Symbol:   trade.Symbol,
			Price:    trade.Price,
			Quantity: trade.Quantity,
		},
	}
	ev.Enrichments.Anomaly = a.detector.Detect(trade.Price)
	return ev
}

func (a *MarketAdapter) setState(s AdapterState) {
	a.state.Store(int32(s))
}

func (a *MarketAdapter) State() AdapterState {
	return AdapterState(a.state.Load())
}

func (a *MarketAdapter) Status() AdapterStatus {
	return AdapterStatus{
		Name:      "market",
		State:     a.State().String(),
		Connected: a.stream.IsConnected() || a.simulator.IsConnected(),
		EventsOut: a.eventsOut.Load(),
		LastEvent: math.Float64frombits(a.lastEventAt.Load()),
	}
}
