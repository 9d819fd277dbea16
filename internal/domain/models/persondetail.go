// internal/domain/models/persondetail.go
package models

// MembershipDetail is a membership enriched with its organization and that
// organization's payment schedule. Organization is nil when the reference is
// dangling.
type MembershipDetail struct {
	Membership     Membership      `json:"membership"`
	Organization   *Organization   `json:"organization,omitempty"`
	PaymentDetails []PaymentDetail `json:"payment_details"`
}

// RelationDetail is a relation with the other person's display fields.
type RelationDetail struct {
	Relation    PersonRelation `json:"relation"`
	RelatedName string         `json:"related_name"`
}

// PersonDetail is the full read model of a person as shown on detail pages
// and consumed by membership reconciliation.
type PersonDetail struct {
	Person       Person             `json:"person"`
	Active       []MembershipDetail `json:"active"`
	Inactive     []MembershipDetail `json:"inactive"`
	PaymentInfos []PaymentInfo      `json:"payment_infos"`
	Address      *Address           `json:"address,omitempty"`
	Relations    []RelationDetail   `json:"relations"`
}
