// Package models defines the node, edge, evidence and ingestion-run types
// that flow through the graph writer, resolver, adapters and detectors.
package models

import "time"

// EntityType tags the variant of an Entity.
type EntityType string

const (
	EntityOrganization EntityType = "Organization"
	EntityPerson       EntityType = "Person"
	EntityOutlet       EntityType = "Outlet"
	EntitySponsor      EntityType = "Sponsor"
	EntityAd           EntityType = "Ad"
	EntityGovernment   EntityType = "Government"
	EntityVendor       EntityType = "Vendor"
	EntityDomain       EntityType = "Domain"
)

// OrgType enumerates Organization.org_type.
type OrgType string

const (
	OrgCorporation OrgType = "corporation"
	OrgNonprofit   OrgType = "nonprofit"
	OrgGovernment  OrgType = "government"
	OrgUnknown     OrgType = "unknown"
)

// OrgStatus enumerates Organization.status.
type OrgStatus string

const (
	StatusActive   OrgStatus = "active"
	StatusInactive OrgStatus = "inactive"
	StatusRevoked  OrgStatus = "revoked"
	StatusUnknown  OrgStatus = "unknown"
)

// MediaType enumerates Outlet.media_type.
type MediaType string

const (
	MediaDigital   MediaType = "digital"
	MediaPrint     MediaType = "print"
	MediaBroadcast MediaType = "broadcast"
	MediaSocial    MediaType = "social"
	MediaMixed     MediaType = "mixed"
)

// Address is the optional structured address carried by an Entity.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"` // state/province
	Postal  string `json:"postal,omitempty"`
	Country string `json:"country,omitempty"`
}

// Entity is a node in the influence graph. Variant-specific attributes are
// typed struct fields, grouped below by the variant that uses them;
// external identifiers live in ExternalIDs and any other attributes in the
// opaque Properties mapping.
type Entity struct {
	ID          string            `json:"id"`
	Type        EntityType        `json:"entity_type"`
	Name        string            `json:"name"`
	Confidence  float64           `json:"confidence"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	Address     *Address          `json:"address,omitempty"`
	Properties  map[string]any    `json:"properties,omitempty"`

	// Organization
	OrgType       OrgType   `json:"org_type,omitempty"`
	Status        OrgStatus `json:"status,omitempty"`
	Jurisdiction  string    `json:"jurisdiction,omitempty"`
	IsCanadian    bool      `json:"is_canadian,omitempty"`
	Sector        string    `json:"sector,omitempty"`
	SIC           string    `json:"sic,omitempty"`
	SICDesc       string    `json:"sic_description,omitempty"`
	FiscalYearEnd string    `json:"fiscal_year_end,omitempty"`
	Tickers       []string  `json:"tickers,omitempty"`
	Exchanges     []string  `json:"exchanges,omitempty"`

	// Person
	Aliases  []string `json:"aliases,omitempty"`
	Location string   `json:"location,omitempty"`

	// Outlet
	Domains         []string `json:"domains,omitempty"`
	MediaType       MediaType `json:"media_type,omitempty"`
	EditorialFocus  []string `json:"editorial_focus,omitempty"`
	OwnerOrgID      string   `json:"owner_org_id,omitempty"`

	// Sponsor
	MetaPageID    string `json:"meta_page_id,omitempty"`
	Disclaimer    string `json:"disclaimer,omitempty"`
	ResolvedOrgID string `json:"resolved_org_id,omitempty"`

	// Ad
	Platform        string     `json:"platform,omitempty"`
	PlatformAdID    string     `json:"platform_ad_id,omitempty"`
	CreationTime    *time.Time `json:"creation_time,omitempty"`
	DeliveryTime    *time.Time `json:"delivery_time,omitempty"`
	SpendLower      float64    `json:"spend_lower,omitempty"`
	SpendUpper      float64    `json:"spend_upper,omitempty"`
	CreativeText    string     `json:"creative_text,omitempty"`

	// Government
	Institution  string `json:"institution,omitempty"`
	IsGovernment bool   `json:"is_government,omitempty"`
}

// ExternalID keys recognized as merge-key candidates (§4.2). The per-type
// precedence order among them is applied by graph.NodeMergeKey.
const (
	IDEin            = "ein"
	IDBn             = "bn"
	IDSecCik         = "sec_cik"
	IDCanadaCorpNum  = "canada_corp_num"
	IDMetaPageID     = "meta_page_id"
	IDIrs990Name     = "irs_990_name"
	IDOpencorpOfficerID = "opencorp_officer_id"
)
