package infra

import "regexp"

// Signal type names (§4.6). Mirrors the original detector's enum values.
const (
	SameRegistrar  = "same_registrar"
	SameNameserver = "same_nameserver"
	SameIP         = "same_ip"
	SameASN        = "same_asn"
	SameHosting    = "same_hosting"
	SameCDN        = "same_cdn"
	SameAnalytics  = "same_analytics"
	SameGTM        = "same_gtm"
	SamePixel      = "same_pixel"
	SameAdsense    = "same_adsense"
	SameSSLIssuer  = "same_ssl_issuer"
	SameCMS        = "same_cms"
	SSLSANOverlap  = "ssl_san_overlap"
)

// SignalWeights are the exact per-signal weights (§4.6) — must be
// reproduced verbatim, not tuned.
var SignalWeights = map[string]float64{
	SameRegistrar:  0.5,
	SameNameserver: 1.5,
	SameIP:         3.0,
	SameASN:        0.5,
	SameHosting:    0.3,
	SameCDN:        0.2,
	SameAnalytics:  4.0,
	SameGTM:        4.5,
	SamePixel:      3.5,
	SameAdsense:    5.0,
	SameSSLIssuer:  0.3,
	SameCMS:        0.2,
	SSLSANOverlap:  4.0,
}

// registrarPattern pairs a compiled matcher with its canonical label,
// preserving the original table's declaration order (map iteration order
// is not stable, so registrar normalization walks this slice).
type registrarPattern struct {
	re        *regexp.Regexp
	canonical string
}

var registrarPatterns = []registrarPattern{
	{regexp.MustCompile(`(?i)godaddy`), "GoDaddy"},
	{regexp.MustCompile(`(?i)namecheap`), "Namecheap"},
	{regexp.MustCompile(`(?i)cloudflare`), "Cloudflare"},
	{regexp.MustCompile(`(?i)google\s*(domains|llc)`), "Google Domains"},
	{regexp.MustCompile(`(?i)network\s*solutions`), "Network Solutions"},
	{regexp.MustCompile(`(?i)tucows`), "Tucows"},
	{regexp.MustCompile(`(?i)gandi`), "Gandi"},
	{regexp.MustCompile(`(?i)porkbun`), "Porkbun"},
	{regexp.MustCompile(`(?i)hostinger`), "Hostinger"},
	{regexp.MustCompile(`(?i)ionos|1&1`), "IONOS"},
	{regexp.MustCompile(`(?i)ovh`), "OVH"},
}

// NormalizeRegistrar maps a raw WHOIS registrar string to its canonical
// provider name, falling back to the raw value when no pattern matches.
func NormalizeRegistrar(raw string) string {
	if raw == "" {
		return ""
	}
	for _, p := range registrarPatterns {
		if p.re.MatchString(raw) {
			return p.canonical
		}
	}
	return raw
}

// asnProvider is (provider name, "hosting" or "cdn").
type asnProvider struct {
	name string
	kind string
}

// ASNProviders maps known ASNs to their hosting/CDN provider (§4.6).
var ASNProviders = map[string]asnProvider{
	"AS13335": {"Cloudflare", "cdn"},
	"AS16509": {"Amazon AWS", "hosting"},
	"AS15169": {"Google Cloud", "hosting"},
	"AS8075":  {"Microsoft Azure", "hosting"},
	"AS20940": {"Akamai", "cdn"},
	"AS54113": {"Fastly", "cdn"},
	"AS14061": {"DigitalOcean", "hosting"},
	"AS63949": {"Linode/Akamai", "hosting"},
	"AS20473": {"Vultr", "hosting"},
	"AS26496": {"GoDaddy", "hosting"},
	"AS16276": {"OVH", "hosting"},
	"AS24940": {"Hetzner", "hosting"},
	"AS397998": {"Vercel", "hosting"},
	"AS209242": {"Netlify", "hosting"},
}

type ipPattern struct {
	re       *regexp.Regexp
	provider string
}

// ipPatterns are fallback IP-prefix heuristics used ahead of (or absent) an
// ASN lookup (§4.6).
var ipPatterns = []ipPattern{
	{regexp.MustCompile(`^104\.1[6-9]\.`), "Cloudflare"},
	{regexp.MustCompile(`^104\.2[0-7]\.`), "Cloudflare"},
	{regexp.MustCompile(`^13\.[0-9]+\.`), "Amazon AWS"},
	{regexp.MustCompile(`^52\.[0-9]+\.`), "Amazon AWS"},
	{regexp.MustCompile(`^35\.[0-9]+\.`), "Google Cloud"},
	{regexp.MustCompile(`^34\.[0-9]+\.`), "Google Cloud"},
}

// MatchIPPattern returns the provider implied by the IP's address prefix,
// or "" if none match.
func MatchIPPattern(ip string) string {
	for _, p := range ipPatterns {
		if p.re.MatchString(ip) {
			return p.provider
		}
	}
	return ""
}

// ResolveASNProvider classifies an ASN into a hosting provider or CDN
// provider field, matching the original's ptype branch.
func ResolveASNProvider(asn string) (hostingProvider, cdnProvider string) {
	p, ok := ASNProviders[asn]
	if !ok {
		return "", ""
	}
	if p.kind == "cdn" {
		return "", p.name
	}
	return p.name, ""
}

// Analytics detection patterns (§4.6).
var (
	googleAnalyticsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`UA-\d{4,10}-\d{1,4}`),
		regexp.MustCompile(`G-[A-Z0-9]{10,}`),
	}
	googleTagManagerPattern = regexp.MustCompile(`GTM-[A-Z0-9]{6,}`)
	facebookPixelPattern    = regexp.MustCompile(`fbq\s*\(\s*['"]init['"]\s*,\s*['"](\d{15,})['"]`)
	adsensePattern          = regexp.MustCompile(`ca-pub-\d{16}`)
)

type cmsPattern struct {
	re  *regexp.Regexp
	cms string
}

// cmsPatterns is checked in declaration order; the first match wins,
// matching the original's dict-iteration short-circuit.
var cmsPatterns = []cmsPattern{
	{regexp.MustCompile(`(?i)wp-content|wp-includes`), "WordPress"},
	{regexp.MustCompile(`(?i)drupal\.js`), "Drupal"},
	{regexp.MustCompile(`(?i)Joomla!`), "Joomla"},
	{regexp.MustCompile(`(?i)ghost\.io`), "Ghost"},
	{regexp.MustCompile(`(?i)squarespace\.com`), "Squarespace"},
	{regexp.MustCompile(`(?i)wix\.com`), "Wix"},
	{regexp.MustCompile(`(?i)shopify\.com`), "Shopify"},
	{regexp.MustCompile(`(?i)webflow\.com`), "Webflow"},
}

func DetectCMS(html string) string {
	for _, p := range cmsPatterns {
		if p.re.MatchString(html) {
			return p.cms
		}
	}
	return ""
}

func findAllUnique(text string, res []*regexp.Regexp) []string {
	seen := map[string]bool{}
	var out []string
	for _, re := range res {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

func findGroupUnique(text string, re *regexp.Regexp) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if len(m) < 2 || m[1] == "" {
			continue
		}
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}
