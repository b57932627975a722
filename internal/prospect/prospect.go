// Package prospect defines the business record being enriched and the
// matching and merge rules that reconcile provider results against it.
package prospect

import (
	"time"

	"github.com/sells-group/lead-intel/internal/model"
)

// Prospect is the internal business record. It pre-exists every enrichment
// job; the engine only ever updates it, never creates or deletes it.
type Prospect struct {
	ID         int64  `json:"id" db:"id"`
	ProviderID string `json:"provider_id,omitempty" db:"provider_id"`
	Name       string `json:"name" db:"name"`
	Website    string `json:"website,omitempty" db:"website"`
	Hostname   string `json:"hostname,omitempty" db:"hostname"`

	// Enrichable slots, each independently fillable.
	Email     string `json:"email,omitempty" db:"email"`
	Phone     string `json:"phone,omitempty" db:"phone"`
	Address   string `json:"address,omitempty" db:"address"`
	Facebook  string `json:"facebook,omitempty" db:"facebook"`
	Instagram string `json:"instagram,omitempty" db:"instagram"`
	LinkedIn  string `json:"linkedin,omitempty" db:"linkedin"`
	Twitter   string `json:"twitter,omitempty" db:"twitter"`
	CMS       string `json:"cms,omitempty" db:"cms"`

	DecisionMakerName  string `json:"decision_maker_name,omitempty" db:"decision_maker_name"`
	DecisionMakerEmail string `json:"decision_maker_email,omitempty" db:"decision_maker_email"`
	DecisionMakerPhone string `json:"decision_maker_phone,omitempty" db:"decision_maker_phone"`

	// Provenance
	EnrichmentSources []string   `json:"enrichment_sources" db:"enrichment_sources"`
	EnrichedAt        *time.Time `json:"enriched_at,omitempty" db:"enriched_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Canonical field keys used by normalizers, the merge policy, and the store.
const (
	FieldEmail              = "email"
	FieldPhone              = "phone"
	FieldAddress            = "address"
	FieldFacebook           = "facebook"
	FieldInstagram          = "instagram"
	FieldLinkedIn           = "linkedin"
	FieldTwitter            = "twitter"
	FieldCMS                = "cms"
	FieldDecisionMakerName  = "decision_maker_name"
	FieldDecisionMakerEmail = "decision_maker_email"
	FieldDecisionMakerPhone = "decision_maker_phone"
)

// slot returns a pointer to the enrichable slot for a canonical field key,
// or nil for unknown keys.
func (p *Prospect) slot(key string) *string {
	switch key {
	case FieldEmail:
		return &p.Email
	case FieldPhone:
		return &p.Phone
	case FieldAddress:
		return &p.Address
	case FieldFacebook:
		return &p.Facebook
	case FieldInstagram:
		return &p.Instagram
	case FieldLinkedIn:
		return &p.LinkedIn
	case FieldTwitter:
		return &p.Twitter
	case FieldCMS:
		return &p.CMS
	case FieldDecisionMakerName:
		return &p.DecisionMakerName
	case FieldDecisionMakerEmail:
		return &p.DecisionMakerEmail
	case FieldDecisionMakerPhone:
		return &p.DecisionMakerPhone
	default:
		return nil
	}
}

// HasSource reports whether the given enrichment kind has already touched
// this prospect.
func (p *Prospect) HasSource(kind model.JobKind) bool {
	for _, s := range p.EnrichmentSources {
		if s == string(kind) {
			return true
		}
	}
	return false
}
