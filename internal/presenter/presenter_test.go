package presenter

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestStepsArePrefixes(t *testing.T) {
	narrative := "You missed two weeks but Physics is very recoverable from here"
	words := strings.Fields(narrative)

	reveal := New(narrative, 2*time.Second)

	steps := reveal.Steps()
	if len(steps) != len(words) {
		t.Fatalf("expected %d steps, got %d", len(words), len(steps))
	}

	for i, step := range steps {
		if !strings.HasPrefix(narrative, step) {
			t.Errorf("step %d is not a prefix of the narrative: %q", i, step)
		}
		if got := len(strings.Fields(step)); got != i+1 {
			t.Errorf("step %d has %d words, want %d", i, got, i+1)
		}
	}

	if steps[len(steps)-1] != narrative {
		t.Errorf("final step = %q, want full narrative", steps[len(steps)-1])
	}
}

func TestIntervalDividesBudget(t *testing.T) {
	reveal := New("one two three four", 2*time.Second)

	if reveal.WordCount() != 4 {
		t.Fatalf("WordCount = %d, want 4", reveal.WordCount())
	}
	if reveal.Interval() != 500*time.Millisecond {
		t.Errorf("Interval = %v, want 500ms", reveal.Interval())
	}
}

func TestIntervalFloor(t *testing.T) {
	// 10ms budget across 4 words would be 2.5ms per word
	reveal := New("one two three four", 10*time.Millisecond)

	if reveal.Interval() != MinWordInterval {
		t.Errorf("Interval = %v, want floor %v", reveal.Interval(), MinWordInterval)
	}
}

func TestZeroBudgetUsesDefaultPace(t *testing.T) {
	reveal := New("one two three four", 0)

	if reveal.Interval() != DefaultPerWord {
		t.Errorf("Interval = %v, want %v", reveal.Interval(), DefaultPerWord)
	}
}

func TestPlayEmitsEveryStep(t *testing.T) {
	narrative := "short test narrative here"
	reveal := New(narrative, 10*time.Millisecond) // floored to 40ms/word

	var got []string
	err := reveal.Play(context.Background(), func(step string) error {
		got = append(got, step)
		return nil
	})
	if err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	if len(got) != reveal.WordCount() {
		t.Fatalf("emitted %d steps, want %d", len(got), reveal.WordCount())
	}
	if got[len(got)-1] != narrative {
		t.Errorf("final emitted step = %q, want full narrative", got[len(got)-1])
	}
}

func TestPlayRestartsEachInvocation(t *testing.T) {
	reveal := New("alpha beta", 10*time.Millisecond)

	for run := 0; run < 2; run++ {
		var got []string
		if err := reveal.Play(context.Background(), func(step string) error {
			got = append(got, step)
			return nil
		}); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if len(got) != 2 || got[0] != "alpha" {
			t.Fatalf("run %d emitted %v, want restart from first word", run, got)
		}
	}
}

func TestPlayStopsOnContextCancel(t *testing.T) {
	reveal := New("one two three four five six seven eight", 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	count := 0
	err := reveal.Play(ctx, func(step string) error {
		count++
		if count == 2 {
			cancel()
		}
		return nil
	})
	if err != context.Canceled {
		t.Fatalf("Play error = %v, want context.Canceled", err)
	}
	if count >= reveal.WordCount() {
		t.Errorf("emitted %d steps after cancel, want early stop", count)
	}
}

func TestEmptyNarrative(t *testing.T) {
	reveal := New("", time.Second)

	if reveal.WordCount() != 0 {
		t.Errorf("WordCount = %d, want 0", reveal.WordCount())
	}
	if err := reveal.Play(context.Background(), func(string) error {
		t.Fatal("callback invoked for empty narrative")
		return nil
	}); err != nil {
		t.Errorf("Play returned error: %v", err)
	}
}
