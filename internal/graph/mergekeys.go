// Package graph implements the Graph Writer (§4.2): idempotent,
// transactional upsert of typed nodes and typed, temporal, evidence-linked
// edges, with deterministic per-type merge keys. Grounded on the original
// Python GraphBuilder (graph/builder.py) — create_organization,
// create_person, create_outlet, create_sponsor,
// create_funded_by_relationship, create_director_of_relationship,
// create_employed_by_relationship, create_owns_relationship,
// create_shared_infra_relationship — generalized to Go's typed-upsert
// style and backed by Postgres rather than a graph database.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"mitds/internal/models"
)

// NodeMergeKey computes the deterministic merge key for an Entity per the
// §4.2 precedence table: the first non-empty external id in precedence
// order, falling back to (name, jurisdiction).
func NodeMergeKey(e *models.Entity) string {
	switch e.Type {
	case models.EntityOrganization:
		for _, idKey := range []string{models.IDEin, models.IDBn, models.IDSecCik, models.IDCanadaCorpNum, models.IDMetaPageID} {
			if v := e.ExternalIDs[idKey]; v != "" {
				return idKey + ":" + v
			}
		}
		return fmt.Sprintf("name_jurisdiction:%s|%s", normalizeKeyPart(e.Name), normalizeKeyPart(e.Jurisdiction))
	case models.EntityPerson:
		for _, idKey := range []string{models.IDIrs990Name, models.IDOpencorpOfficerID, models.IDSecCik} {
			if v := e.ExternalIDs[idKey]; v != "" {
				return idKey + ":" + v
			}
		}
		return "name:" + normalizeKeyPart(e.Name)
	case models.EntityOutlet:
		if len(e.Domains) > 0 {
			return "primary_domain:" + normalizeKeyPart(e.Domains[0])
		}
		return "name:" + normalizeKeyPart(e.Name)
	case models.EntitySponsor:
		if e.MetaPageID != "" {
			return "meta_page_id:" + e.MetaPageID
		}
		return "name:" + normalizeKeyPart(e.Name)
	case models.EntityAd:
		return fmt.Sprintf("platform_ad:%s|%s", e.Platform, e.PlatformAdID)
	default:
		return "name:" + normalizeKeyPart(e.Name)
	}
}

func normalizeKeyPart(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EdgeMergeKey computes the deterministic merge key for an Edge per §3 I2.
// For undirected types (SHARED_INFRA), source/target are sorted so that
// (a,b) and (b,a) observations collide on the same key.
func EdgeMergeKey(e *models.Edge) (string, error) {
	src, tgt := e.SourceID, e.TargetID
	if Undirected(e.Type) && tgt < src {
		src, tgt = tgt, src
	}

	switch e.Type {
	case models.EdgeFundedBy:
		fy, _ := e.Properties["fiscal_year"]
		return fmt.Sprintf("funded_by:%s|%s|%v", src, tgt, fy), nil
	case models.EdgeDirectorOf, models.EdgeEmployedBy:
		return fmt.Sprintf("%s:%s|%s", strings.ToLower(string(e.Type)), src, tgt), nil
	case models.EdgeOwns:
		accession, _ := e.Properties["filing_accession"]
		return fmt.Sprintf("owns:%s|%s|%v", src, tgt, accession), nil
	case models.EdgeSponsoredBy:
		return fmt.Sprintf("sponsored_by:%s|%s", src, tgt), nil
	case models.EdgeSharedInfra:
		return fmt.Sprintf("shared_infra:%s|%s", src, tgt), nil
	case models.EdgeLobbiesFor, models.EdgeLobbied:
		regID, ok := e.Properties["registration_id"]
		if !ok || regID == "" {
			return "", fmt.Errorf("%s edge requires a registration_id merge key", e.Type)
		}
		return fmt.Sprintf("%s:%v", strings.ToLower(string(e.Type)), regID), nil
	case models.EdgeBeneficialOwnerOf:
		return fmt.Sprintf("beneficial_owner_of:%s|%s", src, tgt), nil
	case models.EdgeContributedTo:
		dateReceived, _ := e.Properties["date_received"]
		return fmt.Sprintf("contributed_to:%s|%s|%v", src, tgt, dateReceived), nil
	default:
		return fmt.Sprintf("%s:%s|%s", strings.ToLower(string(e.Type)), src, tgt), nil
	}
}

// Undirected reports whether edgeType has undirected semantics (§4.2):
// currently only SHARED_INFRA.
func Undirected(t models.EdgeType) bool { return t == models.EdgeSharedInfra }

// SortedPair returns a and b in a deterministic order, for callers
// constructing an undirected edge before merge-key computation.
func SortedPair(a, b string) (string, string) {
	pair := []string{a, b}
	sort.Strings(pair)
	return pair[0], pair[1]
}
