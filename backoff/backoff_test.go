package backoff

import (
	"math"
	"testing"
	"time"
)

func TestDelay_Exponential(t *testing.T) {
	base := 100 * time.Millisecond

	want := []time.Duration{
		100 * time.Millisecond, // attempt 1 → base unchanged
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
	}
	for i, w := range want {
		attempt := i + 1
		if got := Delay(base, attempt, Exponential); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}
}

func TestDelay_Linear(t *testing.T) {
	base := 250 * time.Millisecond
	for attempt := 1; attempt <= 6; attempt++ {
		want := base * time.Duration(attempt)
		if got := Delay(base, attempt, Linear); got != want {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestDelay_FixedIgnoresAttempt(t *testing.T) {
	base := time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		if got := Delay(base, attempt, Fixed); got != base {
			t.Fatalf("attempt %d: expected %v, got %v", attempt, base, got)
		}
	}
}

// Unknown strategies silently behave like Fixed. This can hide a typo in
// caller configuration, which is why it is pinned down here.
func TestDelay_UnknownStrategyFallsBackToFixed(t *testing.T) {
	base := 300 * time.Millisecond
	for _, s := range []Strategy{"", "exponentail", "LINEAR", "quadratic"} {
		for attempt := 1; attempt <= 4; attempt++ {
			if got, want := Delay(base, attempt, s), Delay(base, attempt, Fixed); got != want {
				t.Fatalf("strategy %q attempt %d: expected %v, got %v", s, attempt, want, got)
			}
		}
	}
}

func TestDelay_ZeroAndNegativeBase(t *testing.T) {
	for _, s := range []Strategy{Exponential, Linear, Fixed} {
		if got := Delay(0, 5, s); got != 0 {
			t.Fatalf("%s with zero base: expected 0, got %v", s, got)
		}
		if got := Delay(-time.Second, 5, s); got != 0 {
			t.Fatalf("%s with negative base: expected 0, got %v", s, got)
		}
	}
}

func TestDelay_AttemptBelowOneTreatedAsOne(t *testing.T) {
	base := 100 * time.Millisecond
	if got := Delay(base, 0, Exponential); got != base {
		t.Fatalf("expected %v, got %v", base, got)
	}
	if got := Delay(base, -3, Linear); got != base {
		t.Fatalf("expected %v, got %v", base, got)
	}
}

func TestDelay_Saturates(t *testing.T) {
	limit := time.Duration(math.MaxInt64)

	if got := Delay(time.Hour, 200, Exponential); got != limit {
		t.Fatalf("exponential: expected saturation at %v, got %v", limit, got)
	}
	if got := Delay(time.Hour, 40, Exponential); got != limit {
		t.Fatalf("exponential mid-range overflow: expected %v, got %v", limit, got)
	}
	if got := Delay(limit/2, 3, Linear); got != limit {
		t.Fatalf("linear: expected saturation at %v, got %v", limit, got)
	}
}

func TestDelay_Deterministic(t *testing.T) {
	for _, s := range []Strategy{Exponential, Linear, Fixed} {
		a := Delay(123*time.Millisecond, 7, s)
		b := Delay(123*time.Millisecond, 7, s)
		if a != b {
			t.Fatalf("%s: repeated calls differ: %v vs %v", s, a, b)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"exponential":   Exponential,
		"Exponential":   Exponential,
		" linear ":      Linear,
		"fixed":         Fixed,
		"":              Fixed,
		"fibonacci":     Fixed,
		"exponential-2": Fixed,
	}
	for in, want := range cases {
		if got := ParseStrategy(in); got != want {
			t.Fatalf("ParseStrategy(%q): expected %q, got %q", in, want, got)
		}
	}
}
