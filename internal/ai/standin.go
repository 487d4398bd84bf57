// SPDX-License-Identifier: MIT

package ai

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/loomverse/studio/internal/log"
)

// StandInOptions tune the stand-in generator.
type StandInOptions struct {
	// Latency is the simulated per-call model latency.
	Latency time.Duration

	// Seed makes the generated metadata reproducible. Zero seeds from the
	// wall clock.
	Seed int64

	// FailRate in [0,1] injects generation failures for resilience tests.
	FailRate float64

	// Limiter throttles outbound calls. Nil installs a 5 rps burst-10
	// limiter matching the hosted API quota.
	Limiter *rate.Limiter
}

// StandIn is a deterministic, latency-faithful Service implementation used
// until a hosted model is wired in.
type StandIn struct {
	latency  time.Duration
	failRate float64
	limiter  *rate.Limiter
	logger   zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewStandIn(opts StandInOptions) *StandIn {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(5), 10)
	}
	return &StandIn{
		latency:  opts.Latency,
		failRate: opts.FailRate,
		limiter:  limiter,
		logger:   log.WithComponent("ai"),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

var sentenceTemplates = []string{
	"So today I want to, um, walk you through {{topic}}.",
	"The first thing to notice here is, uh, how {{topic}} fits together.",
	"Like I mentioned, {{topic}} is where most of the work happens.",
	"You know, once {{topic}} is set up the rest follows naturally.",
	"Let me, um, zoom in on {{topic}} for a second.",
	"And that wraps up what I wanted to show about {{topic}}.",
}

var topicBank = []string{
	"the onboarding flow", "the deployment pipeline", "the new dashboard",
	"error handling", "the review process", "the data model",
	"performance tuning", "the release checklist", "team workflows",
	"the API surface",
}

var tagBank = []string{
	"walkthrough", "demo", "tutorial", "onboarding", "engineering",
	"product", "design", "review", "update", "howto",
}

// Transcribe implements Service. Roughly one segment is produced per five
// seconds of audio.
func (s *StandIn) Transcribe(ctx context.Context, audio []byte, duration time.Duration) (Transcript, error) {
	if err := s.call(ctx, "transcribe"); err != nil {
		return Transcript{}, err
	}

	n := int(duration/(5*time.Second)) + 1
	if n > len(sentenceTemplates) {
		n = len(sentenceTemplates)
	}
	span := duration / time.Duration(n)

	var t Transcript
	for i := 0; i < n; i++ {
		text := ProcessVariables(s.pick(sentenceTemplates), map[string]string{
			"topic": s.pick(topicBank),
		})
		t.Segments = append(t.Segments, Segment{
			Start: time.Duration(i) * span,
			End:   time.Duration(i+1) * span,
			Text:  text,
		})
	}
	return t, nil
}

// Summarize implements Service.
func (s *StandIn) Summarize(ctx context.Context, transcript string) (string, error) {
	if err := s.call(ctx, "summarize"); err != nil {
		return "", err
	}
	return ProcessVariables(
		"A short recording covering {{a}} and {{b}}, with a walkthrough of the key steps.",
		map[string]string{"a": s.pick(topicBank), "b": s.pick(topicBank)},
	), nil
}

// Tags implements Service. The result contains no duplicates.
func (s *StandIn) Tags(ctx context.Context, transcript string) ([]string, error) {
	if err := s.call(ctx, "tags"); err != nil {
		return nil, err
	}
	return s.pickSet(tagBank, 3+s.roll(3)), nil
}

// Topics implements Service.
func (s *StandIn) Topics(ctx context.Context, transcript string) ([]string, error) {
	if err := s.call(ctx, "topics"); err != nil {
		return nil, err
	}
	return s.pickSet(topicBank, 2+s.roll(2)), nil
}

// SuggestTitle implements Service.
func (s *StandIn) SuggestTitle(ctx context.Context, transcript string) (string, error) {
	if err := s.call(ctx, "title"); err != nil {
		return "", err
	}
	return ProcessVariables("Quick walkthrough: {{topic}}",
		map[string]string{"topic": s.pick(topicBank)}), nil
}

// call applies the limiter, simulated latency and failure injection shared
// by every operation.
func (s *StandIn) call(ctx context.Context, op string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limit: %w", op, err)
	}
	if s.latency > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.latency):
		}
	}
	if s.failRate > 0 && s.rollFloat() < s.failRate {
		s.logger.Warn().Str("event", "ai.injected_failure").Str("op", op).Msg("injected generation failure")
		return fmt.Errorf("%s: %w", op, ErrGeneration)
	}
	return nil
}

func (s *StandIn) pick(bank []string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bank[s.rng.Intn(len(bank))]
}

// pickSet draws n distinct entries from bank.
func (s *StandIn) pickSet(bank []string, n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.rng.Perm(len(bank))
	if n > len(bank) {
		n = len(bank)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, bank[i])
	}
	return out
}

func (s *StandIn) roll(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *StandIn) rollFloat() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
