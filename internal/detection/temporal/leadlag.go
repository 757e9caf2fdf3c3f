package temporal

import (
	"math"
	"math/rand"
	"time"
)

// LeadLagConfig holds the cross-correlation analyzer's tunable parameters
// (§4.7).
type LeadLagConfig struct {
	MaxLagHours           int     // default 24
	MinSamples            int     // default 10
	SignificanceThreshold float64 // default 0.05
	MinCorrelation        float64 // default 0.3
	Permutations          int     // default 1000
}

func DefaultLeadLagConfig() LeadLagConfig {
	return LeadLagConfig{MaxLagHours: 24, MinSamples: 10, SignificanceThreshold: 0.05, MinCorrelation: 0.3, Permutations: 1000}
}

// LeadLagResult is the outcome of comparing two entities' hourly event
// series across a range of lags.
type LeadLagResult struct {
	LeaderEntityID   string
	FollowerEntityID string
	LagMinutes       int
	Correlation      float64
	PValue           float64
	SampleSize       int
	IsSignificant    bool
}

type LeadLagAnalyzer struct {
	cfg  LeadLagConfig
	rng  *rand.Rand
}

// NewLeadLagAnalyzer builds an analyzer; rng may be nil, in which case a
// new source seeded with 1 is used.
func NewLeadLagAnalyzer(cfg LeadLagConfig, rng *rand.Rand) *LeadLagAnalyzer {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &LeadLagAnalyzer{cfg: cfg, rng: rng}
}

// AnalyzePair builds hourly count series for entityA/entityB, scans every
// integer lag in [-MaxLagHours, MaxLagHours] for the strongest Pearson
// correlation, and tests significance via permutation (§4.7). Returns nil
// (no relationship) when either entity has fewer than MinSamples events or
// the combined time range spans under one hour (fewer than two hourly bins).
func (a *LeadLagAnalyzer) AnalyzePair(events []TimingEvent, entityA, entityB string) *LeadLagResult {
	eventsA := eventsForEntity(events, entityA)
	eventsB := eventsForEntity(events, entityB)
	if len(eventsA) < a.cfg.MinSamples || len(eventsB) < a.cfg.MinSamples {
		return nil
	}

	all := append(append([]TimingEvent{}, eventsA...), eventsB...)
	start, end := all[0].Timestamp, all[0].Timestamp
	for _, e := range all[1:] {
		if e.Timestamp.Before(start) {
			start = e.Timestamp
		}
		if e.Timestamp.After(end) {
			end = e.Timestamp
		}
	}
	totalHours := int(end.Sub(start).Hours()) + 1
	if totalHours < 2 {
		return nil
	}

	seriesA := hourlyCounts(eventsA, start, totalHours)
	seriesB := hourlyCounts(eventsB, start, totalHours)

	bestCorr := 0.0
	bestLag := 0
	for lag := -a.cfg.MaxLagHours; lag <= a.cfg.MaxLagHours; lag++ {
		var corr float64
		switch {
		case lag < 0:
			corr = pearson(seriesA[-lag:], seriesB[:len(seriesB)+lag])
		case lag > 0:
			corr = pearson(seriesA[:len(seriesA)-lag], seriesB[lag:])
		default:
			corr = pearson(seriesA, seriesB)
		}
		if math.Abs(corr) > math.Abs(bestCorr) {
			bestCorr = corr
			bestLag = lag
		}
	}

	pValue := a.permutationTest(seriesA, seriesB, bestCorr)

	var leader, follower string
	var lagMinutes int
	if bestLag > 0 {
		leader, follower = entityA, entityB
		lagMinutes = bestLag * 60
	} else {
		leader, follower = entityB, entityA
		lagMinutes = -bestLag * 60
	}

	isSignificant := pValue < a.cfg.SignificanceThreshold && math.Abs(bestCorr) > a.cfg.MinCorrelation

	sampleSize := len(eventsA)
	if len(eventsB) < sampleSize {
		sampleSize = len(eventsB)
	}

	return &LeadLagResult{
		LeaderEntityID:   leader,
		FollowerEntityID: follower,
		LagMinutes:       lagMinutes,
		Correlation:      bestCorr,
		PValue:           pValue,
		SampleSize:       sampleSize,
		IsSignificant:    isSignificant,
	}
}

func hourlyCounts(events []TimingEvent, start time.Time, totalHours int) []float64 {
	series := make([]float64, totalHours)
	for _, e := range events {
		idx := int(e.Timestamp.Sub(start).Hours())
		if idx >= 0 && idx < totalHours {
			series[idx]++
		}
	}
	return series
}

// pearson computes the Pearson correlation coefficient of a and b
// (truncated to the shorter length), returning 0 for constant series.
func pearson(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	a, b = a[:n], b[:n]

	meanA, meanB := mean(a), mean(b)
	var num, sumSqA, sumSqB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		num += da * db
		sumSqA += da * da
		sumSqB += db * db
	}
	if sumSqA == 0 || sumSqB == 0 {
		return 0
	}
	return num / math.Sqrt(sumSqA*sumSqB)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// permutationTest estimates a two-sided p-value by repeatedly shuffling
// series B and recomputing the correlation, matching the original's
// Laplace-smoothed estimator (count_extreme + 1) / (n_permutations + 1).
func (a *LeadLagAnalyzer) permutationTest(seriesA, seriesB []float64, observedCorr float64) float64 {
	countExtreme := 0
	shuffled := make([]float64, len(seriesB))
	for p := 0; p < a.cfg.Permutations; p++ {
		copy(shuffled, seriesB)
		a.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		permCorr := pearson(seriesA, shuffled)
		if math.Abs(permCorr) >= math.Abs(observedCorr) {
			countExtreme++
		}
	}
	return float64(countExtreme+1) / float64(a.cfg.Permutations+1)
}
