package usecase

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/internal/services/analytics"
	"StreamPulse/pkg/logger"
)

// ChatAdapter drives the chat feed lifecycle: connect with retries, consume,
// reconnect on drop and fall back to a local simulator when the live source
// stays unreachable. Every message is normalized, scored for toxicity and
// checked by the chat anomaly detector before publishing.
type ChatAdapter struct {
	stream     drepo.ChatStream
	simulator  drepo.ChatStream
	classifier drepo.ToxicityClassifier
	detector   *analytics.ChatAnomalyDetector
	processor  *EventProcessor
	metrics    drepo.Metrics
	lgr        *logger.Logger

	connectAttempts int
	reconnectDelay  time.Duration
	retryForever    bool

	state       atomic.Int32
	eventsOut   atomic.Uint64
	lastEventAt atomic.Uint64
}

type ChatAdapterConfig struct {
	ConnectAttempts int
	ReconnectDelay  time.Duration
	RetryForever    bool
}

func NewChatAdapter(
	stream drepo.ChatStream,
	simulator drepo.ChatStream,
	classifier drepo.ToxicityClassifier,
	detector *analytics.ChatAnomalyDetector,
	processor *EventProcessor,
	metrics drepo.Metrics,
	lgr *logger.Logger,
	cfg ChatAdapterConfig,
) *ChatAdapter {
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 3
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 2 * time.Second
	}
	return &ChatAdapter{
		stream:          stream,
		simulator:       simulator,
		classifier:      classifier,
		detector:        detector,
		processor:       processor,
		metrics:         metrics,
		lgr:             lgr,
		connectAttempts: cfg.ConnectAttempts,
		reconnectDelay:  cfg.ReconnectDelay,
		retryForever:    cfg.RetryForever,
	}
}

// Run blocks until ctx is cancelled. Once the adapter enters simulation it
// never returns to the live stream.
func (a *ChatAdapter) Run(ctx context.Context) {
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
		a.lgr.Warn("chat stream lost, reconnecting", logger.Error(err))
		a.metrics.RecordError("chat_stream")
		a.setState(StateReconnecting)
	}
}

// connect runs the attempt loop. With retryForever set it keeps dialing
// until ctx ends; otherwise it gives up after connectAttempts tries.
func (a *ChatAdapter) connect(ctx context.Context) bool {
	a.setState(StateConnecting)
	for attempt := 1; a.retryForever || attempt <= a.connectAttempts; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if err := a.connectOnce(ctx); err != nil {
			a.lgr.Warn("chat connect failed",
				logger.Int("attempt", attempt),
				logger.Error(err))
			a.metrics.RecordError("chat_connect")
			if !sleep(ctx, a.reconnectDelay) {
				return false
			}
			continue
		}
		return true
	}
	return false
}

func (a *ChatAdapter) connectOnce(ctx context.Context) error {
	if err := a.stream.Connect(ctx); err != nil {
		return err
	}
	a.setState(StateConnected)
	if err := a.stream.Join(ctx); err != nil {
		_ = a.stream.Close()
		return fmt.Errorf("join: %w", err)
	}
	return nil
}

func (a *ChatAdapter) simulate(ctx context.Context) {
	a.setState(StateSimulating)
	a.lgr.Warn("chat adapter falling back to simulator")
	if err := a.simulator.Connect(ctx); err != nil {
		a.lgr.Error("chat simulator start failed", logger.Error(err))
		return
	}
	_ = a.simulator.Join(ctx)
	_ = a.consume(ctx, a.simulator)
	_ = a.simulator.Close()
	if ctx.Err() != nil {
		return
	}
	a.lgr.Error("chat simulator stopped unexpectedly")
}

func (a *ChatAdapter) consume(ctx context.Context, stream drepo.ChatStream) error {
	msgs, errs := stream.Read(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return fmt.Errorf("chat stream closed")
			}
			return err
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("chat stream closed")
			}
			a.handle(ctx, msg)
		}
	}
}

func (a *ChatAdapter) handle(ctx context.Context, msg *models.ChatMessage) {
	ev := a.normalize(ctx, msg)
	if err := a.processor.Process(ctx, ev); err != nil {
		// publishing failure must not kill the consume loop
		a.lgr.Error("chat event dropped", logger.String("event_id", ev.EventID), logger.Error(err))
		return
	}
	a.eventsOut.Add(1)
	a.lastEventAt.Store(math.Float64bits(ev.Timestamp))
}

func (a *ChatAdapter) normalize(ctx context.Context, msg *models.ChatMessage) *models.NormalizedEvent {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	ev := &models.NormalizedEvent{
		Source:    models.SourceChat,
		Kind:      "chat",
		EventID:   id,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
		Payload: models.ChatPayload{
			Author:  msg.Author,
			Text:    msg.Text,
			Channel: msg.Channel,
		},
	}
	scores := a.classifier.Predict(ctx, msg.Text)
	ev.Enrichments.Toxicity = &scores
	ev.Enrichments.Anomaly = a.detector.Detect(ev)
	return ev
}

func (a *ChatAdapter) setState(s AdapterState) {
	a.state.Store(int32(s))
}

func (a *ChatAdapter) State() AdapterState {
	return AdapterState(a.state.Load())
}

func (a *ChatAdapter) Status() AdapterStatus {
	return AdapterStatus{
		Name:      "chat",
		State:     a.State().String(),
		Connected: a.stream.IsConnected() || a.simulator.IsConnected(),
		EventsOut: a.eventsOut.Load(),
		LastEvent: math.Float64frombits(a.lastEventAt.Load()),
	}
}

// sleep waits for d or until ctx ends, reporting whether the full delay ran.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
