package funding

import (
	"context"
	"testing"
)

type fakeSource struct {
	edges []FundingEdge
	names map[string]string
}

func (f *fakeSource) FundingEdges(ctx context.Context) ([]FundingEdge, error) { return f.edges, nil }

func (f *fakeSource) EntityName(ctx context.Context, id string) (string, error) {
	return f.names[id], nil
}

func TestDetectGroupsSharedFunderRecipients(t *testing.T) {
	src := &fakeSource{
		edges: []FundingEdge{
			{FunderID: "f1", RecipientID: "r1", Amount: 1000},
			{FunderID: "f1", RecipientID: "r2", Amount: 2000},
			{FunderID: "f2", RecipientID: "r1", Amount: 500},
			{FunderID: "f2", RecipientID: "r2", Amount: 500},
			{FunderID: "f3", RecipientID: "r3", Amount: 100},
		},
		names: map[string]string{"r1": "Org One", "r2": "Org Two", "r3": "Org Three"},
	}

	d := New(src, DefaultConfig())
	clusters, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	c := clusters[0]
	if len(c.Members) != 2 {
		t.Fatalf("expected 2 members, got %d: %v", len(c.Members), c.Members)
	}
	if len(c.SharedFunders) != 2 {
		t.Fatalf("expected 2 shared funders, got %d", len(c.SharedFunders))
	}
	if c.TotalFunding != 4000 {
		t.Fatalf("expected total funding 4000, got %v", c.TotalFunding)
	}
}

func TestDetectDiscardsSingleMemberGroups(t *testing.T) {
	src := &fakeSource{
		edges: []FundingEdge{
			{FunderID: "f1", RecipientID: "r1", Amount: 100},
		},
	}
	d := New(src, DefaultConfig())
	clusters, err := d.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(clusters) != 0 {
		t.Fatalf("expected no clusters, got %d", len(clusters))
	}
}

func TestScoreClusterFormula(t *testing.T) {
	cases := []struct {
		members int
		funding float64
		want    float64
	}{
		{members: 10, funding: 100, want: 1.0},
		{members: 2, funding: 0, want: 0.38},
		{members: 5, funding: 100, want: 0.8},
	}
	for _, c := range cases {
		got := scoreCluster(c.members, c.funding)
		if diff := got - c.want; diff > 0.001 || diff < -0.001 {
			t.Errorf("scoreCluster(%d, %v) = %v, want %v", c.members, c.funding, got, c.want)
		}
	}
}
