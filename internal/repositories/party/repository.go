// Package party implements the approximate-search entity store over Postgres.
// Fuzzy lookups run server-side on pg_trgm similarity so the candidate set
// stays bounded.
package party

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const partyColumns = "id, kind, name, normalized_name, tax_id, address, email, phone, metadata, created_at, updated_at"

// Repository handles party persistence and candidate lookups
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new party repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// candidateRow carries a party row plus its server-computed similarity
type candidateRow struct {
	models.Party
	MatchScore float64 `db:"match_score"`
}

// Get retrieves a party by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Party, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(partyColumns)
	sb.From("parties")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var party models.Party
	if err := r.db.GetContext(ctx, &party, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("party %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get party")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get party")
	}
	return &party, nil
}

// FindByTaxID finds the party with an exactly matching normalized tax id.
// Returns nil when no party carries the tax id.
func (r *Repository) FindByTaxID(ctx context.Context, taxID string) (*models.Party, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.FindByTaxID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(partyColumns)
	sb.From("parties")
	sb.Where(sb.Equal("tax_id", taxID))
	sb.Limit(1)

	query, args := sb.Build()
	var party models.Party
	if err := r.db.GetContext(ctx, &party, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to find party by tax id")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find party by tax id")
	}
	return &party, nil
}

// FindCandidatesByName returns parties whose normalized name is trigram-similar
// to the input, ranked by similarity descending
func (r *Repository) FindCandidatesByName(ctx context.Context, name string, kind models.PartyKind, minSimilarity float64, limit int) ([]models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.FindCandidatesByName")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s, similarity(normalized_name, $1) AS match_score
		FROM parties
		WHERE similarity(normalized_name, $1) >= $2`, partyColumns)
	args := []any{name, minSimilarity}

	if kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", len(args)+1)
		args = append(args, kind)
	}
	query += fmt.Sprintf(" ORDER BY match_score DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to find candidates by name")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find candidates by name")
	}

	return toCandidates(rows, models.MatchedFieldName), nil
}

// FindByNameAndAddress returns parties trigram-similar on both name and
// address, ranked by the weighted combination of the two similarities
func (r *Repository) FindByNameAndAddress(ctx context.Context, name string, address string, kind models.PartyKind, nameThreshold float64, addressThreshold float64, limit int) ([]models.MatchCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.FindByNameAndAddress")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s, 0.7 * similarity(normalized_name, $1) + 0.3 * similarity(address, $2) AS match_score
		FROM parties
		WHERE address IS NOT NULL
		  AND similarity(normalized_name, $1) >= $3
		  AND similarity(address, $2) >= $4`, partyColumns)
	args := []any{name, address, nameThreshold, addressThreshold}

	if kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", len(args)+1)
		args = append(args, kind)
	}
	query += fmt.Sprintf(" ORDER BY match_score DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	var rows []candidateRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": name}).Error("Failed to find candidates by name and address")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find candidates by name and address")
	}

	return toCandidates(rows, models.MatchedFieldNameAddress), nil
}

// Add inserts a new party inside the caller's transaction when one is open on
// the context. The commit boundary stays with the transaction owner; without
// an ambient transaction the insert commits immediately.
func (r *Repository) Add(ctx context.Context, party *models.Party) error {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.Add")
	defer span.End()

	if party.ID == "" {
		party.ID = uuid.New().String()
	}
	party.CreatedAt = time.Now().UTC()
	party.UpdatedAt = party.CreatedAt

	joined := database.HasOpenTx(ctx)
	txCtx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to start transaction")
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("parties")
	sb.Cols("id", "kind", "name", "normalized_name", "tax_id", "address", "email", "phone", "metadata", "created_at", "updated_at")
	sb.Values(party.ID, party.Kind, party.Name, party.NormalizedName, party.TaxID, party.Address, party.Email, party.Phone, party.Metadata, party.CreatedAt, party.UpdatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(txCtx, query, args...); err != nil {
		r.logger.WithContext(txCtx).WithError(err).WithFields(map[string]any{"party_id": party.ID}).Error("Failed to add party")
		if !joined {
			// Rollback with the pre-transaction context so it actually fires
			tx.Rollback(ctx)
		}
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to add party")
	}

	if !joined {
		if err := tx.Commit(ctx); err != nil {
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to commit party")
		}
	}
	return nil
}

func toCandidates(rows []candidateRow, matchedField string) []models.MatchCandidate {
	candidates := make([]models.MatchCandidate, 0, len(rows))
	for i := range rows {
		p := rows[i].Party
		candidates = append(candidates, models.MatchCandidate{
			Party:        &p,
			Score:        rows[i].MatchScore,
			MatchedField: matchedField,
		})
	}
	return candidates
}
