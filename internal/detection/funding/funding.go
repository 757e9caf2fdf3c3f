// Package funding implements the funding-cluster detector (§4.5): pairs of
// recipient organizations that share at least min_shared_funders funders are
// grouped via union-find into clusters, scored, and reported with a
// natural-language evidence summary. Grounded on the teacher's plain-struct
// analysis style in pkg/core (no graph-library dependency exists anywhere in
// the retrieved pack for this, so union-find is hand-rolled — see DESIGN.md).
package funding

import (
	"context"
	"fmt"
	"sort"
)

// Config holds the detector's tunable thresholds (§4.5).
type Config struct {
	MinSharedFunders int // default 2
	MinClusterSize   int // default 2
}

func DefaultConfig() Config {
	return Config{MinSharedFunders: 2, MinClusterSize: 2}
}

// FundingEdge is a minimal (funder, recipient, amount) view over a
// FUNDED_BY edge, as fetched from the store ahead of detection.
type FundingEdge struct {
	FunderID    string
	RecipientID string
	Amount      float64
}

// Cluster is a detected group of recipients linked by shared funders.
type Cluster struct {
	Members       []string
	SharedFunders []string
	TotalFunding  float64
	Score         float64
	Confidence    float64
	Summary       string
}

// GraphSource supplies the funding edges to cluster over.
type GraphSource interface {
	FundingEdges(ctx context.Context) ([]FundingEdge, error)
	EntityName(ctx context.Context, id string) (string, error)
}

// Detector runs the funding-cluster algorithm.
type Detector struct {
	cfg    Config
	source GraphSource
}

func New(source GraphSource, cfg Config) *Detector {
	return &Detector{source: source, cfg: cfg}
}

// unionFind is a standard disjoint-set structure over recipient IDs.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[string]string{}, rank: map[string]int{}}
}

func (u *unionFind) find(x string) string {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		u.rank[x] = 0
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// Detect builds the funder -> recipients index, unions recipient pairs that
// share at least MinSharedFunders funders, and scores each resulting
// cluster of size >= MinClusterSize (§4.5).
func (d *Detector) Detect(ctx context.Context) ([]Cluster, error) {
	edges, err := d.source.FundingEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch funding edges: %w", err)
	}

	funderToRecipients := map[string]map[string]bool{}
	recipientFunders := map[string]map[string]bool{}
	recipientFunding := map[string]float64{}

	for _, e := range edges {
		if funderToRecipients[e.FunderID] == nil {
			funderToRecipients[e.FunderID] = map[string]bool{}
		}
		funderToRecipients[e.FunderID][e.RecipientID] = true

		if recipientFunders[e.RecipientID] == nil {
			recipientFunders[e.RecipientID] = map[string]bool{}
		}
		recipientFunders[e.RecipientID][e.FunderID] = true
		recipientFunding[e.RecipientID] += e.Amount
	}

	uf := newUnionFind()
	pairSharedFunders := map[[2]string]map[string]bool{}

	for _, recipients := range funderToRecipients {
		var list []string
		for r := range recipients {
			list = append(list, r)
		}
		sort.Strings(list)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				a, b := list[i], list[j]
				shared := sharedFunders(recipientFunders[a], recipientFunders[b])
				if len(shared) >= d.cfg.MinSharedFunders {
					uf.union(a, b)
					key := pairKey(a, b)
					if pairSharedFunders[key] == nil {
						pairSharedFunders[key] = map[string]bool{}
					}
					for f := range shared {
						pairSharedFunders[key][f] = true
					}
				}
			}
		}
	}

	groups := map[string][]string{}
	for r := range recipientFunders {
		root := uf.find(r)
		groups[root] = append(groups[root], r)
	}

	var clusters []Cluster
	for _, members := range groups {
		if len(members) < d.cfg.MinClusterSize {
			continue
		}
		sort.Strings(members)

		sharedSet := map[string]bool{}
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				key := pairKey(members[i], members[j])
				for f := range pairSharedFunders[key] {
					sharedSet[f] = true
				}
			}
		}
		var sharedFundersList []string
		for f := range sharedSet {
			sharedFundersList = append(sharedFundersList, f)
		}
		sort.Strings(sharedFundersList)

		var total float64
		for _, m := range members {
			total += recipientFunding[m]
		}

		score := scoreCluster(len(members), total)
		confidence := score + 0.2
		if confidence > 1.0 {
			confidence = 1.0
		}

		clusters = append(clusters, Cluster{
			Members:       members,
			SharedFunders: sharedFundersList,
			TotalFunding:  total,
			Score:         score,
			Confidence:    confidence,
			Summary:       d.summarize(ctx, members, sharedFundersList, total),
		})
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Score > clusters[j].Score })
	return clusters, nil
}

// scoreCluster implements the §4.5 exact formula: 0.4 * min(|members|/10, 1)
// + (0.3 if total funding > 0 else 0) + 0.3, clamped to [0, 1].
func scoreCluster(memberCount int, totalFunding float64) float64 {
	sizeComponent := 0.4 * min1(float64(memberCount)/10.0)
	fundingComponent := 0.0
	if totalFunding > 0 {
		fundingComponent = 0.3
	}
	score := sizeComponent + fundingComponent + 0.3
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func min1(x float64) float64 {
	if x > 1 {
		return 1
	}
	return x
}

func sharedFunders(a, b map[string]bool) map[string]bool {
	shared := map[string]bool{}
	for f := range a {
		if b[f] {
			shared[f] = true
		}
	}
	return shared
}

func pairKey(a, b string) [2]string {
	if a < b {
		return [2]string{a, b}
	}
	return [2]string{b, a}
}

func (d *Detector) summarize(ctx context.Context, members, sharedFunders []string, total float64) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		n, err := d.source.EntityName(ctx, m)
		if err != nil || n == "" {
			n = m
		}
		names = append(names, n)
	}
	return fmt.Sprintf("%d recipients (%v) share %d common funder(s), totaling $%.2f in overlapping funding.",
		len(members), names, len(sharedFunders), total)
}
