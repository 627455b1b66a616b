package models

import (
	"encoding/json"
	"time"
)

// PartyKind distinguishes organizations from people
type PartyKind string

const (
	PartyKindOrg    PartyKind = "org"
	PartyKindPerson PartyKind = "person"
)

// Party represents a resolved vendor or person identity
// Field order matches schema: id, kind, name, normalized_name, tax_id, address, email, phone, metadata, ...
type Party struct {
	ID             string          `json:"id" db:"id"`
	Kind           PartyKind       `json:"kind" db:"kind"`
	Name           string          `json:"name" db:"name"`
	NormalizedName string          `json:"normalized_name" db:"normalized_name"`
	TaxID          *string         `json:"tax_id,omitempty" db:"tax_id"`
	Address        *string         `json:"address,omitempty" db:"address"`
	Email          *string         `json:"email,omitempty" db:"email"`
	Phone          *string         `json:"phone,omitempty" db:"phone"`
	Metadata       json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Role is an idempotent (party, role name) association, e.g. "vendor" or "landlord"
type Role struct {
	ID        string    `json:"id" db:"id"`
	PartyID   string    `json:"party_id" db:"party_id"`
	Name      string    `json:"name" db:"name"`
	UserID    *string   `json:"user_id,omitempty" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Matched field tags reported on candidates
const (
	MatchedFieldName        = "name"
	MatchedFieldTaxID       = "tax_id"
	MatchedFieldEmail       = "email"
	MatchedFieldNameAddress = "name+address"
)

// MatchCandidate is an ephemeral scored candidate produced by the entity
// store and consumed once by the resolver
type MatchCandidate struct {
	Party        *Party  `json:"party"`
	Score        float64 `json:"score"`
	MatchedField string  `json:"matched_field"`
}

// ResolveRequest is the input to party resolution
type ResolveRequest struct {
	Kind     PartyKind      `json:"kind" validate:"required,oneof=org person"`
	Name     string         `json:"name" validate:"required"`
	Address  *string        `json:"address,omitempty"`
	TaxID    *string        `json:"tax_id,omitempty"`
	Email    *string        `json:"email,omitempty"`
	Phone    *string        `json:"phone,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ResolutionResult reports how a party was resolved. Tier is monotonic: the
// cascade stops at the first tier that succeeds.
type ResolutionResult struct {
	Matched    bool    `json:"matched"`
	Party      *Party  `json:"party"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Tier       int     `json:"tier"`
}
