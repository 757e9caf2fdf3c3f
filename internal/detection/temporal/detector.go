package temporal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Config bundles the three sub-analyzers' tunables plus the hard-negative
// filter toggle (§4.7, §9 — default on).
type Config struct {
	Burst              BurstConfig
	LeadLag            LeadLagConfig
	Sync               SyncConfig
	ExcludeHardNegatives bool
}

func DefaultConfig() Config {
	return Config{Burst: DefaultBurstConfig(), LeadLag: DefaultLeadLagConfig(), Sync: DefaultSyncConfig(), ExcludeHardNegatives: true}
}

// Result is the combined outcome of temporal-coordination detection over a
// set of events.
type Result struct {
	AnalysisID        string
	AnalyzedAt        time.Time
	TimeRangeStart    time.Time
	TimeRangeEnd      time.Time
	EntityCount       int
	EventCount        int
	Bursts            []BurstResult
	LeadLagPairs      []LeadLagResult
	SynchronizedGroups []SyncResult
	CoordinationScore float64
	Confidence        float64
	IsCoordinated     bool
	Explanation       string
}

// Detector combines burst detection, lead-lag analysis, and
// synchronization scoring into one coordination assessment (§4.7).
type Detector struct {
	cfg    Config
	filter HardNegativeFilter
	burst  *BurstDetector
	leadLag *LeadLagAnalyzer
	sync   *SyncScorer
	now    func() time.Time
}

func New(cfg Config, filter HardNegativeFilter, now func() time.Time) *Detector {
	if filter == nil {
		filter = RoundHourFilter{}
	}
	if now == nil {
		now = time.Now
	}
	return &Detector{
		cfg:     cfg,
		filter:  filter,
		burst:   NewBurstDetector(cfg.Burst),
		leadLag: NewLeadLagAnalyzer(cfg.LeadLag, nil),
		sync:    NewSyncScorer(cfg.Sync),
		now:     now,
	}
}

// Detect runs the full pipeline: optional entity filtering, optional
// hard-negative filtering, per-entity burst detection, pairwise
// significant lead-lag analysis, group synchronization scoring, and the
// composite coordination score (§4.7, §4.8's temporal category input).
func (d *Detector) Detect(events []TimingEvent, entityIDs []string) Result {
	now := d.now()
	if len(events) == 0 {
		return Result{
			AnalysisID: uuid.NewString(), AnalyzedAt: now,
			TimeRangeStart: now, TimeRangeEnd: now,
			Explanation: "No events to analyze",
		}
	}

	if len(entityIDs) > 0 {
		wanted := map[string]bool{}
		for _, id := range entityIDs {
			wanted[id] = true
		}
		filtered := make([]TimingEvent, 0, len(events))
		for _, e := range events {
			if wanted[e.EntityID] {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	entities := uniqueEntities(events)

	start, end := events[0].Timestamp, events[0].Timestamp
	for _, e := range events[1:] {
		if e.Timestamp.Before(start) {
			start = e.Timestamp
		}
		if e.Timestamp.After(end) {
			end = e.Timestamp
		}
	}

	if d.cfg.ExcludeHardNegatives {
		events = d.filter.Filter(events)
	}

	var bursts []BurstResult
	for _, id := range entities {
		bursts = append(bursts, d.burst.DetectBursts(events, id))
	}

	var leadLagPairs []LeadLagResult
	for i, a := range entities {
		for _, b := range entities[i+1:] {
			r := d.leadLag.AnalyzePair(events, a, b)
			if r != nil && r.IsSignificant {
				leadLagPairs = append(leadLagPairs, *r)
			}
		}
	}

	var syncGroups []SyncResult
	if sr := d.sync.ScoreGroup(events, entities); sr != nil {
		syncGroups = append(syncGroups, *sr)
	}

	score := coordinationScore(bursts, leadLagPairs, syncGroups)
	isCoordinated := score > 0.5

	confidence := math1(float64(len(events))/100.0) * math1(float64(len(entities))/5.0)

	return Result{
		AnalysisID:         uuid.NewString(),
		AnalyzedAt:         now,
		TimeRangeStart:     start,
		TimeRangeEnd:       end,
		EntityCount:        len(entities),
		EventCount:         len(events),
		Bursts:             bursts,
		LeadLagPairs:       leadLagPairs,
		SynchronizedGroups: syncGroups,
		CoordinationScore:  score,
		Confidence:         confidence,
		IsCoordinated:      isCoordinated,
		Explanation:        explain(bursts, leadLagPairs, syncGroups, score),
	}
}

func math1(x float64) float64 {
	if x > 1.0 {
		return 1.0
	}
	return x
}

// coordinationScore implements the §4.7/§4.8 exact weighted composite:
// 0.3 * (fraction of entities with a burst) + 0.3 * min(1, significant
// pairs / 3) + 0.4 * mean(sync scores).
func coordinationScore(bursts []BurstResult, leadLagPairs []LeadLagResult, syncGroups []SyncResult) float64 {
	var score float64

	if len(bursts) > 0 {
		withBursts := 0
		for _, b := range bursts {
			if b.BurstCount > 0 {
				withBursts++
			}
		}
		score += (float64(withBursts) / float64(len(bursts))) * 0.3
	}

	if len(leadLagPairs) > 0 {
		significant := 0
		for _, p := range leadLagPairs {
			if p.IsSignificant {
				significant++
			}
		}
		pairScore := math1(float64(significant) / 3.0)
		score += pairScore * 0.3
	}

	if len(syncGroups) > 0 {
		var sum float64
		for _, g := range syncGroups {
			sum += g.SyncScore
		}
		score += (sum / float64(len(syncGroups))) * 0.4
	}

	return score
}

func explain(bursts []BurstResult, leadLagPairs []LeadLagResult, syncGroups []SyncResult, score float64) string {
	var parts []string

	entitiesWithBursts := 0
	for _, b := range bursts {
		if b.BurstCount > 0 {
			entitiesWithBursts++
		}
	}
	if entitiesWithBursts > 0 {
		parts = append(parts, fmt.Sprintf("Detected publication bursts in %d entities.", entitiesWithBursts))
	}

	var significant []LeadLagResult
	for _, p := range leadLagPairs {
		if p.IsSignificant {
			significant = append(significant, p)
		}
	}
	if len(significant) > 0 {
		sort.Slice(significant, func(i, j int) bool {
			return math.Abs(significant[i].Correlation) > math.Abs(significant[j].Correlation)
		})
		top := significant[0]
		parts = append(parts, fmt.Sprintf("Found lead-lag relationship: %s leads %s by ~%d minutes (correlation: %.2f).",
			top.LeaderEntityID, top.FollowerEntityID, top.LagMinutes, top.Correlation))
	}

	if len(syncGroups) > 0 {
		top := syncGroups[0]
		for _, g := range syncGroups[1:] {
			if g.SyncScore > top.SyncScore {
				top = g
			}
		}
		if top.SyncScore > 0.5 {
			parts = append(parts, fmt.Sprintf("High timing synchronization detected (sync score: %.2f).", top.SyncScore))
		}
	}

	if len(parts) == 0 {
		parts = append(parts, "No significant temporal coordination patterns detected.")
	}

	switch {
	case score > 0.7:
		parts = append(parts, "Overall: Strong indicators of coordinated timing.")
	case score > 0.5:
		parts = append(parts, "Overall: Moderate indicators of coordinated timing.")
	case score > 0.3:
		parts = append(parts, "Overall: Weak indicators of possible coordination.")
	default:
		parts = append(parts, "Overall: Timing patterns appear independent.")
	}

	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}
