package temporal

import (
	"math"
	"sort"
	"time"
)

// BurstConfig holds the Kleinberg automaton's tunable parameters (§4.7).
type BurstConfig struct {
	S              float64 // state-rate scaling factor, default 2.0
	Gamma          float64 // state-transition cost, default 1.0
	MinBurstEvents int     // minimum events to report a burst, default 3
}

func DefaultBurstConfig() BurstConfig {
	return BurstConfig{S: 2.0, Gamma: 1.0, MinBurstEvents: 3}
}

// Burst is one detected high-activity period.
type Burst struct {
	StartTime      time.Time
	EndTime        time.Time
	Level          int
	EventCount     int
	DurationHours  float64
}

// BurstResult is the outcome of running burst detection over one entity's
// events.
type BurstResult struct {
	EntityID        string
	Bursts          []Burst
	TotalEvents     int
	BurstCount      int
	AvgEventsPerDay float64
}

type BurstDetector struct {
	cfg BurstConfig
}

func NewBurstDetector(cfg BurstConfig) *BurstDetector { return &BurstDetector{cfg: cfg} }

// DetectBursts runs Kleinberg's automaton model (KDD 2002) over entityID's
// events within the full event set, reproducing the base-rate, state-count,
// and Viterbi DP exactly (§4.7).
func (d *BurstDetector) DetectBursts(events []TimingEvent, entityID string) BurstResult {
	filtered := eventsForEntity(events, entityID)
	if len(filtered) < d.cfg.MinBurstEvents {
		return BurstResult{EntityID: entityID, TotalEvents: len(filtered)}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Timestamp.Before(filtered[j].Timestamp) })

	gaps := make([]float64, 0, len(filtered)-1)
	for i := 1; i < len(filtered); i++ {
		deltaMinutes := filtered[i].Timestamp.Sub(filtered[i-1].Timestamp).Minutes()
		if deltaMinutes < 0.1 {
			deltaMinutes = 0.1
		}
		gaps = append(gaps, deltaMinutes)
	}
	if len(gaps) == 0 {
		return BurstResult{EntityID: entityID, TotalEvents: len(filtered)}
	}

	totalTime := filtered[len(filtered)-1].Timestamp.Sub(filtered[0].Timestamp).Minutes()
	n := len(gaps)
	baseRate := 1.0
	if n > 0 {
		baseRate = totalTime / float64(n)
	}

	maxGap := gaps[0]
	for _, g := range gaps[1:] {
		if g > maxGap {
			maxGap = g
		}
	}

	k := int(math.Ceil(1+logBase(maxGap/baseRate, d.cfg.S))) + 1
	if k < 2 {
		k = 2
	}

	states := viterbi(gaps, baseRate, k, d.cfg.S, d.cfg.Gamma)
	bursts := extractBursts(filtered, states, d.cfg.MinBurstEvents)

	days := math.Floor(filtered[len(filtered)-1].Timestamp.Sub(filtered[0].Timestamp).Hours() / 24.0)
	if days == 0 {
		days = 1
	}

	return BurstResult{
		EntityID:        entityID,
		Bursts:          bursts,
		TotalEvents:     len(filtered),
		BurstCount:      len(bursts),
		AvgEventsPerDay: float64(len(filtered)) / days,
	}
}

func logBase(x, base float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log(x) / math.Log(base)
}

// viterbi finds the minimum-cost state sequence over gaps using an
// exponential emission model and a linear state-transition penalty.
// baseRate is the mean gap in minutes, so state j emits events at rate
// s^j / baseRate per minute.
func viterbi(gaps []float64, baseRate float64, k int, s, gamma float64) []int {
	n := len(gaps)

	cost := make([][]float64, n+1)
	parent := make([][]int, n+1)
	for i := range cost {
		cost[i] = make([]float64, k)
		parent[i] = make([]int, k)
		for j := range cost[i] {
			cost[i][j] = math.Inf(1)
		}
	}
	cost[0][0] = 0

	rates := make([]float64, k)
	for j := 0; j < k; j++ {
		rates[j] = math.Pow(s, float64(j)) / baseRate
	}

	for i := 0; i < n; i++ {
		gap := gaps[i]
		for j := 0; j < k; j++ {
			if math.IsInf(cost[i][j], 1) {
				continue
			}
			for jNext := 0; jNext < k; jNext++ {
				rate := rates[jNext]
				var emitCost float64
				if rate > 0 && gap > 0 {
					emitCost = rate*gap - math.Log(rate)
				} else {
					emitCost = math.Inf(1)
				}

				transCost := 0.0
				if jNext != j {
					d := float64(jNext - j)
					if d > 0 {
						transCost = gamma * d
					}
				}

				total := cost[i][j] + emitCost + transCost
				if total < cost[i+1][jNext] {
					cost[i+1][jNext] = total
					parent[i+1][jNext] = j
				}
			}
		}
	}

	states := make([]int, n)
	minCost := math.Inf(1)
	lastState := 0
	for j := 0; j < k; j++ {
		if cost[n][j] < minCost {
			minCost = cost[n][j]
			lastState = j
		}
	}

	current := lastState
	for i := n - 1; i >= 0; i-- {
		states[i] = current
		current = parent[i+1][current]
	}
	return states
}

func extractBursts(events []TimingEvent, states []int, minBurstEvents int) []Burst {
	var bursts []Burst
	burstStart := -1
	burstLevel := 0
	eventCount := 0

	flush := func(endIdx int) {
		if burstStart >= 0 && eventCount >= minBurstEvents {
			start := events[burstStart].Timestamp
			end := events[endIdx].Timestamp
			bursts = append(bursts, Burst{
				StartTime:     start,
				EndTime:       end,
				Level:         burstLevel,
				EventCount:    eventCount,
				DurationHours: end.Sub(start).Hours(),
			})
		}
		burstStart = -1
		eventCount = 0
	}

	for i, state := range states {
		if state > 0 {
			if burstStart < 0 {
				burstStart = i
				burstLevel = state
				eventCount = 1
			} else {
				if state > burstLevel {
					burstLevel = state
				}
				eventCount++
			}
		} else {
			if burstStart >= 0 {
				flush(i - 1)
			}
		}
	}
	if burstStart >= 0 {
		flush(len(states) - 1)
	}
	return bursts
}
