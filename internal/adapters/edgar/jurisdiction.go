// Package edgar implements the SEC EDGAR source adapter (§4.4), grounded
// on the teacher's pkg/core/ingest/edgar.go EDGARClient HTTP shape
// (zero-padded CIK, SEC-required User-Agent, submissions JSON) and on the
// original Python ingestion/edgar.go for the exact Canadian-jurisdiction
// code table.
package edgar

// CanadianJurisdictions is the fixed SEC stateOfIncorporation code table
// (§4.4, §6) that must be reproduced verbatim. Notably "CA" is excluded:
// it is the two-letter code for California, not Canada.
var CanadianJurisdictions = map[string]string{
	"A0": "Alberta",
	"A1": "British Columbia",
	"A2": "Manitoba",
	"A3": "New Brunswick",
	"A4": "Newfoundland and Labrador",
	"A5": "Nova Scotia",
	"A6": "Ontario",
	"A7": "Prince Edward Island",
	"A8": "Quebec",
	"A9": "Saskatchewan",
	"B0": "Northwest Territories",
	"B1": "Nunavut",
	"B2": "Yukon",
	"CANADA": "Canada (unspecified province)",
}

// IsCanadianJurisdiction derives is_canadian solely from a code-table
// lookup (I5): it is never set by free-text inspection of names.
func IsCanadianJurisdiction(stateOfIncorporation string) bool {
	_, ok := CanadianJurisdictions[stateOfIncorporation]
	return ok
}
