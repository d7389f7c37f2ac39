package twitch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/pkg/logger"
)

var (
	simAuthors = []string{
		"pog_champ42", "stream_sniper", "lurker_prime", "mod_bot",
		"kappa_keeper", "first_viewer", "hype_train", "chat_goblin",
	}
	simPhrases = []string{
		"LUL that was close",
		"gg wp",
		"POGGERS",
		"what a play!!",
		"anyone else lagging?",
		"KEKW",
		"clip it",
		"this streamer is insane",
		"W chat",
		"no shot",
	}
)

// Simulator is a synthetic chat stream used when the real source cannot be
// reached. It produces messages at a 0.1-0.5s cadence from a fixed author and
// vocabulary list, preserving the downstream schema. The randomness source is
// injected so tests stay deterministic.
type Simulator struct {
	channel   string
	rng       *rand.Rand
	lgr       *logger.Logger
	connected bool
}

// NewSimulator creates a chat simulator for channel.
func NewSimulator(channel string, rng *rand.Rand, lgr *logger.Logger) drepo.ChatStream {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{channel: channel, rng: rng, lgr: lgr}
}

// Connect always succeeds.
func (s *Simulator) Connect(ctx context.Context) error {
	s.connected = true
	s.lgr.Info("chat: running simulator", logger.String("channel", s.channel))
	return nil
}

// Join is a no-op for the simulator.
func (s *Simulator) Join(ctx context.Context) error { return nil }

// Read generates synthetic messages until ctx is cancelled.
func (s *Simulator) Read(ctx context.Context) (<-chan *models.ChatMessage, <-chan error) {
	msgs := make(chan *models.ChatMessage, 256)
	errs := make(chan error, 1)

	go func() {
		defer close(msgs)
		defer close(errs)
		for {
			delay := time.Duration(100+s.rng.Intn(400)) * time.Millisecond
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			author := simAuthors[s.rng.Intn(len(simAuthors))]
			text := simPhrases[s.rng.Intn(len(simPhrases))]
			// occasional burst from one author to exercise the frequency rule
			if s.rng.Float64() < 0.05 {
				author = simAuthors[0]
				text = fmt.Sprintf("spam spam spam %d", s.rng.Intn(1000))
			}

			select {
			case msgs <- &models.ChatMessage{
				ID:      uuid.NewString(),
				Author:  author,
				Channel: s.channel,
				Text:    text,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, errs
}

// Close marks the simulator disconnected.
func (s *Simulator) Close() error {
	s.connected = false
	return nil
}

// IsConnected indicates status.
func (s *Simulator) IsConnected() bool { return s.connected }
