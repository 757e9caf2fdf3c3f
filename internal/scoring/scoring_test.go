package scoring

import (
	"math"
	"testing"
)

func TestScoreGatesOnSingleCategory(t *testing.T) {
	signals := []Signal{
		{Type: SignalTemporalCoordination, Strength: 0.9, Confidence: 0.9, EntityIDs: []string{"e1", "e2"}},
		{Type: SignalTemporalCoordination, Strength: 0.8, Confidence: 0.8, EntityIDs: []string{"e1", "e2"}},
	}
	result := Score(signals)
	if result.IsFlagged {
		t.Fatalf("expected is_flagged=false with only one category present, got true")
	}
}

func TestScoreFlagsWithTwoCategoriesAndDiversity(t *testing.T) {
	signals := []Signal{
		{Type: SignalTemporalCoordination, Strength: 0.9, Confidence: 0.9, EntityIDs: []string{"e1", "e2"}},
		{Type: SignalTemporalCoordination, Strength: 0.6, Confidence: 0.6, EntityIDs: []string{"e1", "e2"}},
		{Type: SignalSharedFunder, Strength: 0.7, Confidence: 0.8, EntityIDs: []string{"e1", "e2"}},
	}
	result := Score(signals)
	if !result.IsFlagged {
		t.Fatalf("expected is_flagged=true, messages=%v", result.Messages)
	}
	if result.CategoryCount != 2 {
		t.Fatalf("expected 2 categories, got %d", result.CategoryCount)
	}
}

func TestScoreRawScoreWeighting(t *testing.T) {
	signals := []Signal{
		{Type: SignalTemporalCoordination, Strength: 1.0, Confidence: 1.0, EntityIDs: []string{"a"}},
		{Type: SignalSharedFunder, Strength: 1.0, Confidence: 1.0, EntityIDs: []string{"b"}},
	}
	result := Score(signals)
	want := CategoryWeights[CategoryTemporal] + CategoryWeights[CategoryFunding]
	if math.Abs(result.RawScore-want) > 1e-9 {
		t.Fatalf("RawScore = %v, want %v", result.RawScore, want)
	}
}

func TestScoreCorrelationBoostWhenCategoriesShareEntities(t *testing.T) {
	shared := []string{"org-1", "org-2"}
	signals := []Signal{
		{Type: SignalTemporalCoordination, Strength: 0.8, Confidence: 0.8, EntityIDs: shared},
		{Type: SignalSharedFunder, Strength: 0.8, Confidence: 0.8, EntityIDs: shared},
	}
	result := Score(signals)
	if result.AdjustedScore <= result.RawScore {
		t.Fatalf("expected AdjustedScore (%v) > RawScore (%v) from correlation boost", result.AdjustedScore, result.RawScore)
	}
}

func TestScoreEmptyInput(t *testing.T) {
	result := Score(nil)
	if result.IsFlagged {
		t.Fatalf("expected is_flagged=false for no signals")
	}
}
