package party

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const roleColumns = "id, party_id, name, user_id, created_at"

// GetOrCreateRole looks up or inserts a role keyed by (party_id, name). The
// insert uses ON CONFLICT DO NOTHING, so concurrent callers converge on a
// single surviving row. The bool reports whether this call created it.
func (r *Repository) GetOrCreateRole(ctx context.Context, partyID string, roleName string, userID *string) (*models.Role, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "party.Repository.GetOrCreateRole")
	defer span.End()

	role := &models.Role{
		ID:        uuid.New().String(),
		PartyID:   partyID,
		Name:      roleName,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("party_roles")
	sb.Cols("id", "party_id", "name", "user_id", "created_at")
	sb.Values(role.ID, role.PartyID, role.Name, role.UserID, role.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (party_id, name) DO NOTHING"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"party_id": partyID,
			"role":     roleName,
		}).Error("Failed to insert role")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert role")
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert role")
	}
	if inserted > 0 {
		return role, true, nil
	}

	// Lost the race or the role already existed; fetch the surviving row
	existing, err := r.getRole(ctx, partyID, roleName)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *Repository) getRole(ctx context.Context, partyID string, roleName string) (*models.Role, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(roleColumns)
	sb.From("party_roles")
	sb.Where(
		sb.Equal("party_id", partyID),
		sb.Equal("name", roleName),
	)

	query, args := sb.Build()
	var role models.Role
	if err := r.db.GetContext(ctx, &role, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, "role not found")
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get role")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get role")
	}
	return &role, nil
}
