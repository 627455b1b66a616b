// Package matching implements the party resolution cascade
package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/normalizers"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// EntityStore is the persistence boundary the resolver queries. The store
// must support approximate name search server-side (trigram similarity) so
// the candidate set stays bounded. Add defers its commit to the caller's
// transaction; the resolver never commits.
type EntityStore interface {
	FindByTaxID(ctx context.Context, taxID string) (*models.Party, error)
	FindCandidatesByName(ctx context.Context, name string, kind models.PartyKind, minSimilarity float64, limit int) ([]models.MatchCandidate, error)
	FindByNameAndAddress(ctx context.Context, name, address string, kind models.PartyKind, nameThreshold, addressThreshold float64, limit int) ([]models.MatchCandidate, error)
	Add(ctx context.Context, party *models.Party) error
	GetOrCreateRole(ctx context.Context, partyID string, roleName string, userID *string) (*models.Role, bool, error)
}

// Combined weights for the name+address tier
const (
	nameWeight    = 0.7
	addressWeight = 0.3
)

// Config contains the resolver thresholds
type Config struct {
	FuzzyThreshold      float64 // minimum similarity for a fuzzy name match (tier 3)
	CombinedThreshold   float64 // minimum weighted name+address score (tier 4)
	NameSubThreshold    float64 // independent name floor for tier 4
	AddressSubThreshold float64 // independent address floor for tier 4
	RecallThreshold     float64 // low server-side similarity bound for the candidate query
	MaxCandidates       int     // maximum candidates fetched per resolution
}

// DefaultConfig returns default resolver thresholds
func DefaultConfig() Config {
	return Config{
		FuzzyThreshold:      0.90,
		CombinedThreshold:   0.80,
		NameSubThreshold:    0.80,
		AddressSubThreshold: 0.70,
		RecallThreshold:     0.30,
		MaxCandidates:       25,
	}
}

// Resolver resolves free-text vendor identities through an ordered cascade of
// increasingly permissive tiers, stopping at the first success
type Resolver struct {
	store   EntityStore
	scorer  *Scorer
	emitter *events.Emitter
	logger  ectologger.Logger
	config  Config
	tiers   []tier
}

// tier is one strategy in the cascade. attempt returns nil when the tier does
// not produce a match.
type tier struct {
	number  int
	name    string
	attempt func(ctx context.Context, state *resolveState) (*models.ResolutionResult, error)
}

// resolveState carries per-resolution normalized inputs and memoizes the
// candidate set shared by the exact-name and fuzzy tiers
type resolveState struct {
	req              models.ResolveRequest
	normName         string
	candidates       []models.MatchCandidate
	candidatesLoaded bool
}

// NewResolver creates a new Resolver. The emitter may be nil.
func NewResolver(store EntityStore, config Config, emitter *events.Emitter, logger ectologger.Logger) *Resolver {
	r := &Resolver{
		store:   store,
		scorer:  NewScorer(),
		emitter: emitter,
		logger:  logger,
		config:  config,
	}
	r.tiers = []tier{
		{number: 1, name: "exact_tax_id", attempt: r.attemptTaxID},
		{number: 2, name: "exact_name", attempt: r.attemptExactName},
		{number: 3, name: "fuzzy_name", attempt: r.attemptFuzzyName},
		{number: 4, name: "name_address", attempt: r.attemptNameAddress},
		{number: 5, name: "create", attempt: r.attemptCreate},
	}
	return r
}

// Resolve runs the cascade for the given request. It always succeeds for
// structurally valid input: the final tier creates a new party.
func (r *Resolver) Resolve(ctx context.Context, req models.ResolveRequest) (*models.ResolutionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Resolver.Resolve")
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	state := &resolveState{
		req:      req,
		normName: normalizers.NormalizeVendorName(req.Name),
	}
	if state.normName == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "party name is required")
	}

	log := r.logger.WithContext(ctx).WithFields(map[string]any{
		"kind": req.Kind,
		"name": req.Name,
	})

	for _, t := range r.tiers {
		result, err := t.attempt(ctx, state)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}

		log.WithFields(map[string]any{
			"tier":       result.Tier,
			"strategy":   t.name,
			"confidence": result.Confidence,
			"party_id":   result.Party.ID,
		}).Debug("Resolved party")

		if r.emitter != nil {
			r.emitter.EmitPartyResolved(ctx, result)
		}
		return result, nil
	}

	// Unreachable: the create tier always produces a result
	return nil, fmt.Errorf("resolution cascade produced no result")
}

// GetOrCreateRole performs an idempotent lookup-or-insert keyed by
// (party, role name)
func (r *Resolver) GetOrCreateRole(ctx context.Context, partyID string, roleName string, userID *string) (*models.Role, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Resolver.GetOrCreateRole")
	defer span.End()

	if partyID == "" || roleName == "" {
		return nil, false, httperror.NewHTTPError(http.StatusBadRequest, "party id and role name are required")
	}

	return r.store.GetOrCreateRole(ctx, partyID, roleName, userID)
}

// candidatesFor fetches the name-similar candidate set once per resolution
func (r *Resolver) candidatesFor(ctx context.Context, state *resolveState) ([]models.MatchCandidate, error) {
	if state.candidatesLoaded {
		return state.candidates, nil
	}

	candidates, err := r.store.FindCandidatesByName(ctx, state.normName, state.req.Kind, r.config.RecallThreshold, r.config.MaxCandidates)
	if err != nil {
		return nil, err
	}

	state.candidates = candidates
	state.candidatesLoaded = true
	return candidates, nil
}

// Tier 1: binary equality on the normalized tax id
func (r *Resolver) attemptTaxID(ctx context.Context, state *resolveState) (*models.ResolutionResult, error) {
	if state.req.TaxID == nil {
		return nil, nil
	}
	taxID := normalizers.NormalizeTaxID(*state.req.TaxID)
	if taxID == "" {
		return nil, nil
	}

	party, err := r.store.FindByTaxID(ctx, taxID)
	if err != nil {
		return nil, err
	}
	if party == nil {
		return nil, nil
	}

	return &models.ResolutionResult{
		Matched:    true,
		Party:      party,
		Confidence: 1.0,
		Reason:     "exact tax id match",
		Tier:       1,
	}, nil
}

// Tier 2: equality on the normalized name among the candidate set
func (r *Resolver) attemptExactName(ctx context.Context, state *resolveState) (*models.ResolutionResult, error) {
	candidates, err := r.candidatesFor(ctx, state)
	if err != nil {
		return nil, err
	}

	for _, c := range candidates {
		if c.Party == nil {
			continue
		}
		if r.scorer.ExactMatch(c.Party.NormalizedName, state.normName) == 1.0 {
			return &models.ResolutionResult{
				Matched:    true,
				Party:      c.Party,
				Confidence: 1.0,
				Reason:     "exact normalized name match",
				Tier:       2,
			}, nil
		}
	}
	return nil, nil
}

// Tier 3: best Levenshtein similarity at or above the fuzzy threshold.
// Ties keep the store-returned order.
func (r *Resolver) attemptFuzzyName(ctx context.Context, state *resolveState) (*models.ResolutionResult, error) {
	candidates, err := r.candidatesFor(ctx, state)
	if err != nil {
		return nil, err
	}

	var best *models.Party
	var bestScore float64
	for _, c := range candidates {
		if c.Party == nil {
			continue
		}
		score := r.scorer.Levenshtein(state.normName, c.Party.NormalizedName)
		if score >= r.config.FuzzyThreshold && score > bestScore {
			best = c.Party
			bestScore = score
		}
	}
	if best == nil {
		return nil, nil
	}

	return &models.ResolutionResult{
		Matched:    true,
		Party:      best,
		Confidence: bestScore,
		Reason:     fmt.Sprintf("fuzzy name match (similarity %.2f)", bestScore),
		Tier:       3,
	}, nil
}

// Tier 4: weighted name+address score, with independent floors on each field
func (r *Resolver) attemptNameAddress(ctx context.Context, state *resolveState) (*models.ResolutionResult, error) {
	if state.req.Address == nil {
		return nil, nil
	}
	address := normalizers.NormalizeAddress(*state.req.Address)
	if address == "" {
		return nil, nil
	}

	candidates, err := r.store.FindByNameAndAddress(ctx, state.normName, address, state.req.Kind,
		r.config.NameSubThreshold, r.config.AddressSubThreshold, r.config.MaxCandidates)
	if err != nil {
		return nil, err
	}

	var best *models.Party
	var bestScore float64
	for _, c := range candidates {
		if c.Party == nil || c.Party.Address == nil {
			continue
		}

		nameScore := r.scorer.Levenshtein(state.normName, c.Party.NormalizedName)
		addressScore := r.scorer.Levenshtein(address, normalizers.NormalizeAddress(*c.Party.Address))
		if nameScore < r.config.NameSubThreshold || addressScore < r.config.AddressSubThreshold {
			continue
		}

		combined := r.scorer.WeightedScore(
			map[string]float64{"name": nameScore, "address": addressScore},
			map[string]float64{"name": nameWeight, "address": addressWeight},
		)
		if combined >= r.config.CombinedThreshold && combined > bestScore {
			best = c.Party
			bestScore = combined
		}
	}
	if best == nil {
		return nil, nil
	}

	return &models.ResolutionResult{
		Matched:    true,
		Party:      best,
		Confidence: bestScore,
		Reason:     fmt.Sprintf("name and address match (combined %.2f)", bestScore),
		Tier:       4,
	}, nil
}

// Tier 5: no match, construct a new party. The store insert joins the
// caller's transaction; commit stays with the caller.
func (r *Resolver) attemptCreate(ctx context.Context, state *resolveState) (*models.ResolutionResult, error) {
	party := &models.Party{
		ID:             uuid.New().String(),
		Kind:           state.req.Kind,
		Name:           state.req.Name,
		NormalizedName: state.normName,
		Address:        state.req.Address,
		Phone:          state.req.Phone,
	}
	if state.req.TaxID != nil {
		taxID := normalizers.NormalizeTaxID(*state.req.TaxID)
		party.TaxID = &taxID
	}
	if state.req.Email != nil {
		email := normalizers.NormalizeEmail(*state.req.Email)
		party.Email = &email
	}
	if len(state.req.Metadata) > 0 {
		metadata, err := json.Marshal(state.req.Metadata)
		if err != nil {
			return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid party metadata")
		}
		party.Metadata = metadata
	}

	if err := r.store.Add(ctx, party); err != nil {
		return nil, err
	}

	return &models.ResolutionResult{
		Matched:    false,
		Party:      party,
		Confidence: 0.0,
		Reason:     "no existing party matched, created new",
		Tier:       5,
	}, nil
}
