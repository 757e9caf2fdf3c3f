// Package scoring implements the composite scorer (§4.8): detected
// signals from the three detection engines are grouped by category,
// fused into a weighted raw score, boosted for cross-category
// correlation, gated on signal diversity, and reported with a confidence
// band. No original-language reference was retrieved for this component
// (composite.py was filtered out of original_source/), so this package is
// built directly from the specification text in the teacher's plain-struct
// analysis idiom.
package scoring

import "sort"

// Category is one of the three detection-engine families feeding the
// composite score.
type Category string

const (
	CategoryTemporal       Category = "temporal"
	CategoryFunding        Category = "funding"
	CategoryInfrastructure Category = "infrastructure"
)

// SignalType names the originating detector within a category.
type SignalType string

const (
	SignalTemporalCoordination SignalType = "TEMPORAL_COORDINATION"
	SignalSharedFunder         SignalType = "SHARED_FUNDER"
	SignalInfrastructureShare  SignalType = "INFRASTRUCTURE_SHARING"
)

// CategoryWeights are the exact per-category weights used in the raw-score
// fusion (§4.8).
var CategoryWeights = map[Category]float64{
	CategoryTemporal:       0.3,
	CategoryFunding:        0.4,
	CategoryInfrastructure: 0.3,
}

func categoryFor(t SignalType) Category {
	switch t {
	case SignalTemporalCoordination:
		return CategoryTemporal
	case SignalSharedFunder:
		return CategoryFunding
	case SignalInfrastructureShare:
		return CategoryInfrastructure
	default:
		return Category(t)
	}
}

// Signal is one detected finding feeding the composite scorer.
type Signal struct {
	Type       SignalType
	Strength   float64
	Confidence float64
	EntityIDs  []string
}

// Result is the composite scorer's output for one entity set.
type Result struct {
	RawScore      float64
	AdjustedScore float64
	IsFlagged     bool
	ConfidenceLow float64
	ConfidenceHigh float64
	CategoryCount int
	Messages      []string
}

// Score implements §4.8 end to end: category grouping, weighted fusion,
// cross-category correlation boost, the diversity gate, and the
// confidence band.
func Score(signals []Signal) Result {
	if len(signals) == 0 {
		return Result{Messages: []string{"no signals provided"}}
	}

	byCategory := map[Category][]Signal{}
	for _, s := range signals {
		cat := categoryFor(s.Type)
		byCategory[cat] = append(byCategory[cat], s)
	}

	categoryStrength := map[Category]float64{}
	var categories []Category
	for cat, sigs := range byCategory {
		categories = append(categories, cat)
		best := 0.0
		for _, s := range sigs {
			v := s.Strength * s.Confidence
			if v > best {
				best = v
			}
		}
		categoryStrength[cat] = best
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	var rawScore float64
	for cat, strength := range categoryStrength {
		rawScore += strength * CategoryWeights[cat]
	}

	correlatedCategories := correlatedCategoryCount(byCategory)
	boost := 0.0
	if correlatedCategories > 1 {
		boost = 0.05 * float64(correlatedCategories-1)
		if boost > 0.10 {
			boost = 0.10
		}
	}
	adjustedScore := rawScore * (1 + boost)

	var messages []string
	hasQualifyingCategory := false
	for _, cat := range categories {
		if len(byCategory[cat]) < 2 {
			messages = append(messages, string(cat)+" category has only one signal")
		} else {
			hasQualifyingCategory = true
		}
	}

	isFlagged := hasQualifyingCategory && len(categories) >= 2
	if !isFlagged {
		messages = append(messages, "gating failed: requires >=2 distinct signals in >=1 category and >=2 categories present")
	}

	minConf, maxConf := 1.0, 0.0
	for _, s := range signals {
		if s.Confidence < minConf {
			minConf = s.Confidence
		}
		if s.Confidence > maxConf {
			maxConf = s.Confidence
		}
	}

	confidenceLow := adjustedScore * minConf
	confidenceHigh := adjustedScore*maxConf + 0.1
	if confidenceHigh > 1.0 {
		confidenceHigh = 1.0
	}

	return Result{
		RawScore:       rawScore,
		AdjustedScore:  adjustedScore,
		IsFlagged:      isFlagged,
		ConfidenceLow:  confidenceLow,
		ConfidenceHigh: confidenceHigh,
		CategoryCount:  len(categories),
		Messages:       messages,
	}
}

// correlatedCategoryCount counts categories that share at least one
// entity id with some other category, implementing the "pair on the same
// entity set" correlation-boost trigger (§4.8).
func correlatedCategoryCount(byCategory map[Category][]Signal) int {
	entitySetsByCategory := map[Category]map[string]bool{}
	for cat, sigs := range byCategory {
		set := map[string]bool{}
		for _, s := range sigs {
			for _, id := range s.EntityIDs {
				set[id] = true
			}
		}
		entitySetsByCategory[cat] = set
	}

	correlated := map[Category]bool{}
	var cats []Category
	for cat := range entitySetsByCategory {
		cats = append(cats, cat)
	}
	for i := 0; i < len(cats); i++ {
		for j := i + 1; j < len(cats); j++ {
			if sharesEntity(entitySetsByCategory[cats[i]], entitySetsByCategory[cats[j]]) {
				correlated[cats[i]] = true
				correlated[cats[j]] = true
			}
		}
	}
	return len(correlated)
}

func sharesEntity(a, b map[string]bool) bool {
	for id := range a {
		if b[id] {
			return true
		}
	}
	return false
}
