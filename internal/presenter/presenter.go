package presenter

import (
	"context"
	"strings"
	"time"
)

// MinWordInterval is the floor for the per-word reveal interval.
const MinWordInterval = 40 * time.Millisecond

// DefaultPerWord is the assumed speaking pace used when no playback
// budget is supplied.
const DefaultPerWord = 250 * time.Millisecond

// Reveal paces a word-by-word reveal of a finalized narrative against
// an assumed total playback budget. The budget is an estimate, not a
// measurement of the real audio: if they diverge, text and audio
// simply desynchronize. Purely presentational.
type Reveal struct {
	words    []string
	interval time.Duration
}

// New builds a reveal for narrative spread over the given budget.
// A zero or negative budget falls back to DefaultPerWord per word.
func New(narrative string, budget time.Duration) *Reveal {
	words := strings.Fields(narrative)

	var interval time.Duration
	if len(words) > 0 {
		if budget <= 0 {
			budget = time.Duration(len(words)) * DefaultPerWord
		}
		interval = budget / time.Duration(len(words))
	}
	if interval < MinWordInterval {
		interval = MinWordInterval
	}

	return &Reveal{words: words, interval: interval}
}

// WordCount returns the number of reveal steps
func (r *Reveal) WordCount() int {
	return len(r.words)
}

// Interval returns the computed per-word interval
func (r *Reveal) Interval() time.Duration {
	return r.interval
}

// Steps returns all reveal steps eagerly: one step per word, each a
// prefix of the full narrative, the last equal to the whole text.
func (r *Reveal) Steps() []string {
	steps := make([]string, len(r.words))
	for i := range r.words {
		steps[i] = strings.Join(r.words[:i+1], " ")
	}
	return steps
}

// Play emits the reveal steps at the computed interval. Each
// invocation restarts from the first word. Stops early if fn returns
// an error or the context is canceled.
func (r *Reveal) Play(ctx context.Context, fn func(step string) error) error {
	if len(r.words) == 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for i := range r.words {
		if err := fn(strings.Join(r.words[:i+1], " ")); err != nil {
			return err
		}
		if i == len(r.words)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
