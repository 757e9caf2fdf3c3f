// Package resolver implements the Entity Resolver (§4.3): identifier-first
// matching with fuzzy-name fallback and jurisdiction/address/director
// signals, producing auto-merge, review-queue, or discard decisions.
// Grounded on the original Python SponsorResolver
// (cases/resolution/sponsor.py): identical weight constants, legal-suffix
// stripping list, and threshold bands — token-sort-ratio fuzzy matching
// is reimplemented by hand since no fuzzy-matching library appears
// anywhere in the reference corpus (see DESIGN.md).
package resolver

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"mitds/internal/models"
)

// Weight constants (§4.3). Sum to 1.1 by design; clamped, not normalized,
// per the resolved Open Question (preserve behavior (b)).
const (
	WeightIdentifier     = 0.5
	WeightFuzzyName      = 0.3
	WeightJurisdiction   = 0.1
	WeightAddressCity    = 0.05
	WeightAddressPostal  = 0.05
	WeightSharedDirector = 0.1

	MinFuzzySimilarity = 0.85

	ThresholdAutoMerge = 0.9
	ThresholdReview    = 0.7
)

// legalSuffixes is the fixed suffix-stripping list from the original
// resolver's _normalize_name.
var legalSuffixes = []string{
	"incorporated", "corporation", "foundation",
	"inc", "ltd", "llc", "corp", "co", "lp", "llp", "plc",
}

var caser = cases.Fold()

// Normalize lower-cases, Unicode-folds, removes commas, periods and
// apostrophes (other punctuation is kept), collapses whitespace, and strips
// every suffix in legalSuffixes (possibly more than one, repeatedly,
// mirroring the original's iterative strip). Idempotent (T6): re-applying
// Normalize to its own output returns the same string.
func Normalize(name string) string {
	s := caser.String(name)
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case ',', '.', '\'':
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	for {
		stripped := false
		for _, suf := range legalSuffixes {
			if strings.HasSuffix(s, " "+suf) {
				s = strings.TrimSuffix(s, " "+suf)
				s = strings.TrimSpace(s)
				stripped = true
			} else if s == suf {
				s = ""
				stripped = true
			}
		}
		if !stripped {
			break
		}
	}
	return s
}

// Mention is an observed candidate for resolution: a name plus optional
// identifiers, jurisdiction, and address fields (§4.3).
type Mention struct {
	Name         string
	ExternalIDs  map[string]string // ein, bn, canada_corp_num, meta_page_id
	Jurisdiction string
	City         string
	Postal       string
	Directors    []string // names of known directors/officers, for the shared-director signal
}

// Candidate is a ranked existing node with a per-signal confidence
// breakdown (§6).
type Candidate struct {
	EntityID        string
	Confidence      float64
	Signals         map[string]float64
	IdentifierMatch bool
	OutgoingEdges   int

	// Raw attributes returned by a CandidatesByName lookup, compared
	// against the mention by Resolve to build the jurisdiction/address
	// signals. Unused on CandidatesByIdentifier results.
	Jurisdiction string
	City         string
	Postal       string

	// NameSimilarity is the token-sort-ratio score CandidatesByName
	// computed against minSimilarity, carried through so Resolve can
	// scale the fuzzy-name weight by it rather than granting the full
	// weight to every match clearing the threshold.
	NameSimilarity float64
}

// GraphView is the minimal read surface the resolver needs against
// current graph state; PostgresGraphView implements it over the relational
// store.
type GraphView interface {
	CandidatesByIdentifier(ctx context.Context, idType, idValue string) ([]Candidate, error)
	CandidatesByName(ctx context.Context, normalizedName string, minSimilarity float64) ([]Candidate, error)
	SharesDirector(ctx context.Context, entityID string, directors []string) (bool, error)
}

// Resolver resolves mentions against graph state.
type Resolver struct {
	graph GraphView
}

func New(g GraphView) *Resolver { return &Resolver{graph: g} }

// Resolve returns ranked candidates for mention, highest confidence first.
// An identifier hit short-circuits to confidence 1.0 without further
// scoring, per §4.3 rule 1.
func (r *Resolver) Resolve(ctx context.Context, m Mention) ([]Candidate, error) {
	for _, idType := range []string{models.IDMetaPageID, models.IDEin, models.IDBn, models.IDCanadaCorpNum} {
		idValue, ok := m.ExternalIDs[idType]
		if !ok || idValue == "" {
			continue
		}
		hits, err := r.graph.CandidatesByIdentifier(ctx, idType, idValue)
		if err != nil {
			return nil, err
		}
		if len(hits) > 0 {
			out := make([]Candidate, len(hits))
			for i, h := range hits {
				out[i] = Candidate{
					EntityID:        h.EntityID,
					Confidence:      1.0,
					Signals:         map[string]float64{"identifier": WeightIdentifier},
					IdentifierMatch: true,
					OutgoingEdges:   h.OutgoingEdges,
				}
			}
			sortCandidates(out)
			return out, nil
		}
	}

	normalized := Normalize(m.Name)
	nameHits, err := r.graph.CandidatesByName(ctx, normalized, MinFuzzySimilarity)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, h := range nameHits {
		fuzzyScore := h.NameSimilarity * WeightFuzzyName
		signals := map[string]float64{"fuzzy_name": fuzzyScore}
		score := fuzzyScore

		if m.Jurisdiction != "" && strings.EqualFold(m.Jurisdiction, h.Jurisdiction) {
			signals["jurisdiction"] = WeightJurisdiction
			score += WeightJurisdiction
		}
		if m.City != "" && strings.EqualFold(m.City, h.City) {
			signals["address_city"] = WeightAddressCity
			score += WeightAddressCity
		}
		if len(m.Postal) >= 3 && len(h.Postal) >= 3 && strings.EqualFold(m.Postal[:3], h.Postal[:3]) {
			signals["address_postal"] = WeightAddressPostal
			score += WeightAddressPostal
		}
		if len(m.Directors) > 0 {
			shared, err := r.graph.SharesDirector(ctx, h.EntityID, m.Directors)
			if err != nil {
				return nil, err
			}
			if shared {
				signals["shared_director"] = WeightSharedDirector
				score += WeightSharedDirector
			}
		}

		if score > 1.0 {
			score = 1.0
		}
		out = append(out, Candidate{
			EntityID:      h.EntityID,
			Confidence:    score,
			Signals:       signals,
			OutgoingEdges: h.OutgoingEdges,
		})
	}

	sortCandidates(out)
	return out, nil
}

// sortCandidates breaks ties at equal confidence by highest
// identifier-signal first, then by fewest outgoing edges (§4.3).
func sortCandidates(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Confidence != cands[j].Confidence {
			return cands[i].Confidence > cands[j].Confidence
		}
		if cands[i].IdentifierMatch != cands[j].IdentifierMatch {
			return cands[i].IdentifierMatch
		}
		return cands[i].OutgoingEdges < cands[j].OutgoingEdges
	})
}

// Decision is the resolver's auto-merge/review/discard verdict (§4.3).
type Decision string

const (
	DecisionAutoMerge Decision = "auto_merge"
	DecisionReview    Decision = "review"
	DecisionDiscard   Decision = "discard"
)

// Decide maps a candidate's confidence to a Decision per the fixed
// thresholds.
func Decide(confidence float64) Decision {
	switch {
	case confidence >= ThresholdAutoMerge:
		return DecisionAutoMerge
	case confidence >= ThresholdReview:
		return DecisionReview
	default:
		return DecisionDiscard
	}
}
