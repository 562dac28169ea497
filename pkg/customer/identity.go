// Package customer implements the cross-connector customer matching engine
// (C7): four in-memory inverted indexes, weighted similarity scoring over a
// candidate set, and a union-find arena resolving the transitive linkages a
// merge can produce.
package customer

import "time"

// IdentifierKind names one of the four normalized facets an Identity tracks.
type IdentifierKind string

const (
	IdentifierName      IdentifierKind = "name"
	IdentifierPhone     IdentifierKind = "phone"
	IdentifierEmail     IdentifierKind = "email"
	IdentifierBusiness  IdentifierKind = "business_id"
)

// Identity is the Customer Identity record (§3). Its four identifier sets
// only ever grow: Merge unions a candidate's sets into the survivor and
// never removes an element, matching the "no element removed without an
// explicit split op" invariant (§8 invariant 5).
type Identity struct {
	ID               string                    `json:"id"`
	TenantID         string                    `json:"tenant_id"`
	PrimaryName      string                    `json:"primary_name"`
	Names            map[string]struct{}       `json:"-"`
	Phones           map[string]struct{}       `json:"-"`
	Emails           map[string]struct{}       `json:"-"`
	Addresses        map[string]struct{}       `json:"-"`
	BusinessIDs      map[string]string         `json:"business_ids"` // kind -> normalized value
	Sources          map[string]string         `json:"sources"`      // source system -> local id
	AggregateConfidence float64                `json:"aggregate_confidence"`
	LastUpdated      time.Time                 `json:"last_updated"`
	Verified         map[IdentifierKind]bool   `json:"verified"`
}

// newIdentity allocates an Identity with every set initialized, so callers
// never need a nil-map check before writing into it.
func newIdentity(id, tenantID, primaryName string, now time.Time) *Identity {
	return &Identity{
		ID:          id,
		TenantID:    tenantID,
		PrimaryName: primaryName,
		Names:       map[string]struct{}{},
		Phones:      map[string]struct{}{},
		Emails:      map[string]struct{}{},
		Addresses:   map[string]struct{}{},
		BusinessIDs: map[string]string{},
		Sources:     map[string]string{},
		LastUpdated: now,
		Verified:    map[IdentifierKind]bool{},
	}
}

// NameSet, PhoneSet, EmailSet and AddressSet return the sorted contents of
// each identifier set, for deterministic assertions and wire serialization.
func (id *Identity) NameSet() []string    { return sortedKeys(id.Names) }
func (id *Identity) PhoneSet() []string   { return sortedKeys(id.Phones) }
func (id *Identity) EmailSet() []string   { return sortedKeys(id.Emails) }
func (id *Identity) AddressSet() []string { return sortedKeys(id.Addresses) }

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Payload is the customer-identifying information extracted from an
// inbound transaction, independent of connector kind (§4.4 "incoming
// transaction's extracted customer payload").
type Payload struct {
	Name       string
	Phone      string
	Email      string
	Address    string
	TIN        string
	CAC        string
	SourceSystem string
	SourceLocalID string
}

// absorb folds a normalized Payload's facets into id, extending every set
// monotonically and recording the contributing source system.
func (id *Identity) absorb(p normalizedPayload, now time.Time) {
	if p.name != "" {
		id.Names[p.name] = struct{}{}
	}
	if p.phone != "" {
		id.Phones[p.phone] = struct{}{}
	}
	if p.email != "" {
		id.Emails[p.email] = struct{}{}
	}
	if p.address != "" {
		id.Addresses[p.address] = struct{}{}
	}
	if p.tin != "" {
		id.BusinessIDs["TIN"] = p.tin
	}
	if p.cac != "" {
		id.BusinessIDs["CAC"] = p.cac
	}
	if p.sourceSystem != "" {
		id.Sources[p.sourceSystem] = p.sourceLocalID
	}
	id.LastUpdated = now
}
