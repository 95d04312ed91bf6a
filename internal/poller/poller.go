// Package poller tracks a remote a1.art task until it reaches a terminal
// status or the polling deadline passes.
package poller

import (
	"context"
	"errors"
	"time"

	"github.com/kiranshivaraju/a1gen/internal/a1"
	"github.com/rs/zerolog"
)

// State is the poller's lifecycle state.
type State int

const (
	StatePolling State = iota
	StateDone
)

func (s State) String() string {
	if s == StateDone {
		return "DONE"
	}
	return "POLLING"
}

// Config holds the fixed polling constants.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultConfig polls every 3s for at most 45s.
var DefaultConfig = Config{Interval: 3 * time.Second, Timeout: 45 * time.Second}

// Outcome is the last observation of a task when polling stopped.
type Outcome struct {
	Raw      a1.Document
	Images   []string
	Status   string
	Terminal bool

	Ticks               int
	FailedTicks         int
	ConsecutiveFailures int
}

// Poller drives the POLLING -> DONE state machine against an a1.Client.
type Poller struct {
	client a1.Client
	cfg    Config
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger zerolog.Logger
}

// Option customizes a Poller.
type Option func(*Poller)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithSleep replaces the inter-tick sleep, for deterministic tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) { p.sleep = sleep }
}

// WithLogger sets the logger used for tick failures.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// New creates a Poller. Non-positive config values fall back to DefaultConfig.
func New(client a1.Client, cfg Config, opts ...Option) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig.Timeout
	}
	p := &Poller{
		client: client,
		cfg:    cfg,
		now:    time.Now,
		sleep:  sleepContext,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll queries the task until a terminal status is seen, the deadline passes
// or ctx is cancelled. Reaching the deadline is not an error: the returned
// Outcome then has Terminal == false and holds whatever was last observed.
// Tick failures are counted in the Outcome and never abort polling.
func (p *Poller) Poll(ctx context.Context, taskID, apiKey string) Outcome {
	out := Outcome{Raw: a1.Document{}}
	deadline := p.now().Add(p.cfg.Timeout)
	log := p.logger.With().Str("task_id", taskID).Logger()

	state := StatePolling
	for state == StatePolling {
		remaining := deadline.Sub(p.now())
		if remaining <= 0 || ctx.Err() != nil {
			break
		}

		state = p.tick(ctx, remaining, taskID, apiKey, &out, log)
		if state == StateDone {
			break
		}

		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			break
		}
	}

	out.Terminal = state == StateDone
	log.Debug().
		Str("state", state.String()).
		Str("status", out.Status).
		Int("ticks", out.Ticks).
		Int("failed_ticks", out.FailedTicks).
		Int("images", len(out.Images)).
		Msg("polling stopped")
	return out
}

// tick performs one poll and folds the response into out.
func (p *Poller) tick(ctx context.Context, remaining time.Duration, taskID, apiKey string, out *Outcome, log zerolog.Logger) State {
	tickCtx, cancel := context.WithTimeout(ctx, remaining)
	defer cancel()

	out.Ticks++
	doc, err := p.client.PollTask(tickCtx, taskID, apiKey)
	if err != nil {
		out.FailedTicks++
		out.ConsecutiveFailures++
		log.Warn().Err(err).
			Int("tick", out.Ticks).
			Int("consecutive_failures", out.ConsecutiveFailures).
			Msg("poll tick failed")
		// Non-JSON bodies still arrive wrapped and are inspected below.
		if !errors.Is(err, a1.ErrPollNotJSON) || doc == nil {
			return StatePolling
		}
	} else {
		out.ConsecutiveFailures = 0
	}

	out.Raw = doc
	payload := Classify(doc)
	if urls := payload.URLs(); len(urls) > 0 {
		out.Images = urls
	}
	out.Status = payload.Status()

	if IsTerminal(out.Status) {
		return StateDone
	}
	return StatePolling
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
