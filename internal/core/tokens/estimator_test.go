package tokens

import (
	"strings"
	"testing"
)

func TestEstimate_Deterministic(t *testing.T) {
	e := NewEstimator("gpt-4o-mini")
	text := "Tesla opened a new Supercharger station in Seoul."

	if e.Estimate(text) != e.Estimate(text) {
		t.Error("estimate must be deterministic for identical input")
	}
}

func TestEstimate_Empty(t *testing.T) {
	e := NewEstimator("gpt-4o-mini")

	if got := e.Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
}

func TestEstimate_MonotonicUnderConcatenation(t *testing.T) {
	e := NewEstimator("gpt-4o-mini")

	a := "Model Y lease pricing drops again."
	b := strings.Repeat("Charging network expansion continues across Korea. ", 10)

	estA := e.Estimate(a)
	estAB := e.Estimate(a + b)

	if estAB < estA {
		t.Errorf("Estimate(a+b) = %d < Estimate(a) = %d", estAB, estA)
	}

	if estAB < e.Estimate(b) {
		t.Errorf("Estimate(a+b) = %d < Estimate(b) = %d", estAB, e.Estimate(b))
	}
}

func TestNewEstimator_UnknownModelFallsBack(t *testing.T) {
	known := NewEstimator("gpt-4o")
	unknown := NewEstimator("some-future-model")

	text := strings.Repeat("electric vehicle market news ", 20)

	// The fallback ratio is more conservative, so it never estimates smaller.
	if unknown.Estimate(text) < known.Estimate(text) {
		t.Error("generic fallback must not under-estimate relative to tuned ratios")
	}
}

func TestEstimateAll(t *testing.T) {
	e := NewEstimator("gpt-4o")
	texts := []string{"one", "two", "three"}

	want := e.Estimate("one") + e.Estimate("two") + e.Estimate("three")
	if got := EstimateAll(e, texts); got != want {
		t.Errorf("EstimateAll() = %d, want %d", got, want)
	}
}
