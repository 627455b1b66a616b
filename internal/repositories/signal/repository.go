// Package signal persists intake records with a unique dedupe-key constraint
package signal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const signalColumns = "id, source, dedupe_key, payload, status, created_at, processed_at"

// Repository handles signal persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new signal repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a signal by ID
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Signal, error) {
	ctx, span := tracing.StartSpan(ctx, "signal.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(signalColumns)
	sb.From("signals")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var signal models.Signal
	if err := r.db.GetContext(ctx, &signal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("signal %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get signal")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get signal")
	}
	return &signal, nil
}

// GetByDedupeKey retrieves a signal by its dedupe key, or nil when absent
func (r *Repository) GetByDedupeKey(ctx context.Context, dedupeKey string) (*models.Signal, error) {
	ctx, span := tracing.StartSpan(ctx, "signal.Repository.GetByDedupeKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(signalColumns)
	sb.From("signals")
	sb.Where(sb.Equal("dedupe_key", dedupeKey))

	query, args := sb.Build()
	var signal models.Signal
	if err := r.db.GetContext(ctx, &signal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get signal by dedupe key")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get signal by dedupe key")
	}
	return &signal, nil
}

// Insert records the signal if no row exists for its dedupe key. On a
// uniqueness race it re-fetches and returns the surviving row with
// created=false, so concurrent identical creates converge on one record.
func (r *Repository) Insert(ctx context.Context, signal *models.Signal) (*models.Signal, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "signal.Repository.Insert")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("signals")
	sb.Cols("id", "source", "dedupe_key", "payload", "status", "created_at")
	sb.Values(signal.ID, signal.Source, signal.DedupeKey, signal.Payload, signal.Status, signal.CreatedAt)

	query, args := sb.Build()
	query += " ON CONFLICT (dedupe_key) DO NOTHING"

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"dedupe_key": signal.DedupeKey}).Error("Failed to insert signal")
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert signal")
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to insert signal")
	}
	if inserted > 0 {
		return signal, true, nil
	}

	survivor, err := r.GetByDedupeKey(ctx, signal.DedupeKey)
	if err != nil {
		return nil, false, err
	}
	if survivor == nil {
		// Conflict row deleted between insert and fetch; extremely unlikely
		return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to resolve signal dedupe conflict")
	}
	return survivor, false, nil
}

// UpdateStatus swaps the signal status and processed timestamp, conditioned
// on the status the caller read. A zero-row update against an existing row
// means another transition won the race and surfaces as a conflict.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from models.SignalStatus, to models.SignalStatus, processedAt *time.Time) (*models.Signal, error) {
	ctx, span := tracing.StartSpan(ctx, "signal.Repository.UpdateStatus")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("signals")
	assignments := []string{sb.Assign("status", to)}
	if processedAt != nil {
		assignments = append(assignments, sb.Assign("processed_at", *processedAt))
	}
	sb.Set(assignments...)
	sb.Where(
		sb.Equal("id", id),
		sb.Equal("status", from),
	)

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"signal_id": id}).Error("Failed to update signal status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update signal status")
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update signal status")
	}
	if updated == 0 {
		// existing row means the status moved under us
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, httperror.NewHTTPError(http.StatusConflict,
			fmt.Sprintf("signal %s status changed concurrently", id))
	}

	return r.GetByID(ctx, id)
}
