package infra

import "testing"

func TestCompareIsSymmetric(t *testing.T) {
	a := Profile{
		Domain: "a.example",
		WHOIS:  &WHOISResult{Domain: "a.example", Registrar: "GoDaddy"},
		DNS:    &DNSResult{Domain: "a.example", ARecords: []string{"1.2.3.4"}, Nameservers: []string{"ns1.example"}},
		Analytics: &AnalyticsResult{Domain: "a.example", GoogleAnalyticsIDs: []string{"UA-1234567-1"}},
	}
	b := Profile{
		Domain: "b.example",
		WHOIS:  &WHOISResult{Domain: "b.example", Registrar: "GoDaddy"},
		DNS:    &DNSResult{Domain: "b.example", ARecords: []string{"1.2.3.4"}, Nameservers: []string{"ns1.example"}},
		Analytics: &AnalyticsResult{Domain: "b.example", GoogleAnalyticsIDs: []string{"UA-1234567-1"}},
	}

	ab := Compare(a, b)
	ba := Compare(b, a)

	if ab.TotalScore != ba.TotalScore {
		t.Fatalf("Compare not symmetric: ab=%v ba=%v", ab.TotalScore, ba.TotalScore)
	}
	if len(ab.Signals) != len(ba.Signals) {
		t.Fatalf("signal count mismatch: ab=%d ba=%d", len(ab.Signals), len(ba.Signals))
	}

	want := SignalWeights[SameRegistrar] + SignalWeights[SameNameserver] + SignalWeights[SameIP] + SignalWeights[SameAnalytics]
	if ab.TotalScore != want {
		t.Fatalf("TotalScore = %v, want %v", ab.TotalScore, want)
	}
}

func TestCompareExcludesOwnDomainFromSANOverlap(t *testing.T) {
	a := Profile{
		Domain: "a.example",
		SSL:    &SSLResult{Domain: "a.example", Issuer: "Let's Encrypt", SubjectAltNames: []string{"a.example", "*.a.example", "shared.example"}},
	}
	b := Profile{
		Domain: "b.example",
		SSL:    &SSLResult{Domain: "b.example", Issuer: "Let's Encrypt", SubjectAltNames: []string{"b.example", "*.b.example", "shared.example"}},
	}

	m := Compare(a, b)
	sanCount := 0
	for _, s := range m.Signals {
		if s.SignalType == SSLSANOverlap {
			sanCount++
			if s.Value != "shared.example" {
				t.Errorf("unexpected SAN overlap value %q", s.Value)
			}
		}
	}
	if sanCount != 1 {
		t.Fatalf("expected 1 SAN overlap signal, got %d", sanCount)
	}
}

func TestSharingCategoryPriority(t *testing.T) {
	m := Match{Signals: []Signal{
		{SignalType: SameIP},
		{SignalType: SameAnalytics},
	}}
	if got := m.SharingCategory(); got != "analytics" {
		t.Fatalf("expected analytics category, got %q", got)
	}
}

func TestNormalizeRegistrarFallsBackToRaw(t *testing.T) {
	if got := NormalizeRegistrar("Some Unknown Registrar Inc"); got != "Some Unknown Registrar Inc" {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if got := NormalizeRegistrar("GoDaddy.com, LLC"); got != "GoDaddy" {
		t.Fatalf("expected GoDaddy, got %q", got)
	}
}
