package infra

import "sort"

// Compare produces a symmetric SHARED_INFRA match between two profiles:
// Compare(a, b) and Compare(b, a) accumulate the identical signal set,
// order aside (T5). Each overlapping value becomes its own weighted
// signal; a category contributes zero signals when either profile lacks
// that probe's data.
func Compare(a, b Profile) Match {
	match := Match{DomainA: a.Domain, DomainB: b.Domain}

	if a.WHOIS != nil && b.WHOIS != nil {
		compareWHOIS(*a.WHOIS, *b.WHOIS, &match)
	}
	if a.DNS != nil && b.DNS != nil {
		compareDNS(*a.DNS, *b.DNS, &match)
		compareNameservers(*a.DNS, *b.DNS, &match)
	}
	if len(a.Hosting) > 0 && len(b.Hosting) > 0 {
		compareHosting(a.Hosting, b.Hosting, &match)
	}
	if a.Analytics != nil && b.Analytics != nil {
		compareAnalytics(*a.Analytics, *b.Analytics, &match)
	}
	if a.SSL != nil && b.SSL != nil {
		compareSSL(*a.SSL, *b.SSL, a.Domain, b.Domain, &match)
	}

	sort.Slice(match.Signals, func(i, j int) bool {
		if match.Signals[i].SignalType != match.Signals[j].SignalType {
			return match.Signals[i].SignalType < match.Signals[j].SignalType
		}
		return match.Signals[i].Value < match.Signals[j].Value
	})
	return match
}

func stringSet(xs []string) map[string]bool {
	s := make(map[string]bool, len(xs))
	for _, x := range xs {
		s[x] = true
	}
	return s
}

func sortedOverlap(a, b map[string]bool) []string {
	var out []string
	for x := range a {
		if b[x] {
			out = append(out, x)
		}
	}
	sort.Strings(out)
	return out
}

func compareWHOIS(a, b WHOISResult, match *Match) {
	if a.Registrar != "" && b.Registrar != "" && a.Registrar == b.Registrar {
		match.addSignal(Signal{
			SignalType: SameRegistrar, Value: a.Registrar, Weight: SignalWeights[SameRegistrar],
			Description: "same registrar: " + a.Registrar,
		})
	}
}

func compareNameservers(a, b DNSResult, match *Match) {
	for _, ns := range sortedOverlap(stringSet(a.Nameservers), stringSet(b.Nameservers)) {
		match.addSignal(Signal{
			SignalType: SameNameserver, Value: ns, Weight: SignalWeights[SameNameserver],
			Description: "shared nameserver: " + ns,
		})
	}
}

func compareDNS(a, b DNSResult, match *Match) {
	for _, ip := range sortedOverlap(stringSet(a.ARecords), stringSet(b.ARecords)) {
		match.addSignal(Signal{
			SignalType: SameIP, Value: ip, Weight: SignalWeights[SameIP],
			Description: "same IP address: " + ip,
		})
	}
}

func compareHosting(a, b []HostingResult, match *Match) {
	asnA, asnB := map[string]bool{}, map[string]bool{}
	for _, h := range a {
		if h.ASN != "" {
			asnA[h.ASN] = true
		}
	}
	for _, h := range b {
		if h.ASN != "" {
			asnB[h.ASN] = true
		}
	}
	for _, asn := range sortedOverlap(asnA, asnB) {
		match.addSignal(Signal{
			SignalType: SameASN, Value: asn, Weight: SignalWeights[SameASN],
			Description: "same ASN: " + asn,
		})
	}

	hostA, hostB := map[string]bool{}, map[string]bool{}
	for _, h := range a {
		if h.HostingProvider != "" && !h.IsSharedHosting {
			hostA[h.HostingProvider] = true
		}
	}
	for _, h := range b {
		if h.HostingProvider != "" && !h.IsSharedHosting {
			hostB[h.HostingProvider] = true
		}
	}
	for _, host := range sortedOverlap(hostA, hostB) {
		match.addSignal(Signal{
			SignalType: SameHosting, Value: host, Weight: SignalWeights[SameHosting],
			Description: "same hosting provider: " + host,
		})
	}

	cdnA, cdnB := map[string]bool{}, map[string]bool{}
	for _, h := range a {
		if h.CDNProvider != "" {
			cdnA[h.CDNProvider] = true
		}
	}
	for _, h := range b {
		if h.CDNProvider != "" {
			cdnB[h.CDNProvider] = true
		}
	}
	for _, cdn := range sortedOverlap(cdnA, cdnB) {
		match.addSignal(Signal{
			SignalType: SameCDN, Value: cdn, Weight: SignalWeights[SameCDN],
			Description: "same CDN: " + cdn,
		})
	}
}

func compareAnalytics(a, b AnalyticsResult, match *Match) {
	for _, id := range sortedOverlap(stringSet(a.GoogleAnalyticsIDs), stringSet(b.GoogleAnalyticsIDs)) {
		match.addSignal(Signal{SignalType: SameAnalytics, Value: id, Weight: SignalWeights[SameAnalytics],
			Description: "same Google Analytics ID: " + id})
	}
	for _, id := range sortedOverlap(stringSet(a.GoogleTagManagerIDs), stringSet(b.GoogleTagManagerIDs)) {
		match.addSignal(Signal{SignalType: SameGTM, Value: id, Weight: SignalWeights[SameGTM],
			Description: "same GTM container: " + id})
	}
	for _, id := range sortedOverlap(stringSet(a.FacebookPixelIDs), stringSet(b.FacebookPixelIDs)) {
		match.addSignal(Signal{SignalType: SamePixel, Value: id, Weight: SignalWeights[SamePixel],
			Description: "same Facebook Pixel: " + id})
	}
	for _, id := range sortedOverlap(stringSet(a.AdsenseIDs), stringSet(b.AdsenseIDs)) {
		match.addSignal(Signal{SignalType: SameAdsense, Value: id, Weight: SignalWeights[SameAdsense],
			Description: "same AdSense publisher: " + id})
	}
	if a.CMSDetected != "" && b.CMSDetected != "" && a.CMSDetected == b.CMSDetected {
		match.addSignal(Signal{SignalType: SameCMS, Value: a.CMSDetected, Weight: SignalWeights[SameCMS],
			Description: "same CMS: " + a.CMSDetected})
	}
}

// compareSSL excludes each domain's own name and wildcard from the SAN
// overlap set, per the original detector's exclusion of {domain_a,
// domain_b, *.domain_a, *.domain_b}.
func compareSSL(a, b SSLResult, domainA, domainB string, match *Match) {
	if a.Issuer != "" && b.Issuer != "" && a.Issuer == b.Issuer {
		match.addSignal(Signal{SignalType: SameSSLIssuer, Value: a.Issuer, Weight: SignalWeights[SameSSLIssuer],
			Description: "same SSL issuer: " + a.Issuer})
	}

	excluded := map[string]bool{
		domainA: true, domainB: true,
		"*." + domainA: true, "*." + domainB: true,
	}
	overlap := sortedOverlap(stringSet(a.SubjectAltNames), stringSet(b.SubjectAltNames))
	for _, san := range overlap {
		if excluded[san] {
			continue
		}
		match.addSignal(Signal{SignalType: SSLSANOverlap, Value: san, Weight: SignalWeights[SSLSANOverlap],
			Description: "SSL SAN overlap: " + san})
	}
}
