// Package signals provides idempotent intake tracking for uploaded documents
package signals

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var validate = validator.New()

// SignalStore is the persistence boundary for intake records. Insert must be
// atomic insert-if-absent on the dedupe key: on a uniqueness race it returns
// the surviving row with created=false. UpdateStatus is compare-and-swap on
// the current status so interleaved transitions cannot move a signal
// backward.
type SignalStore interface {
	GetByDedupeKey(ctx context.Context, dedupeKey string) (*models.Signal, error)
	GetByID(ctx context.Context, id string) (*models.Signal, error)
	Insert(ctx context.Context, signal *models.Signal) (*models.Signal, bool, error)
	UpdateStatus(ctx context.Context, id string, from models.SignalStatus, to models.SignalStatus, processedAt *time.Time) (*models.Signal, error)
}

// Processor records intake signals exactly once per dedupe key and walks them
// through their forward-only lifecycle
type Processor struct {
	store   SignalStore
	emitter *events.Emitter
	logger  ectologger.Logger
}

// NewProcessor creates a new signal processor. The emitter may be nil.
func NewProcessor(store SignalStore, emitter *events.Emitter, logger ectologger.Logger) *Processor {
	return &Processor{
		store:   store,
		emitter: emitter,
		logger:  logger,
	}
}

// CreateSignal records an intake event idempotently: if a signal already
// exists for the dedupe key, the existing record is returned unchanged.
func (p *Processor) CreateSignal(ctx context.Context, req models.CreateSignalRequest) (*models.Signal, error) {
	ctx, span := tracing.StartSpan(ctx, "signals.Processor.CreateSignal")
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"source":     req.Source,
		"dedupe_key": req.DedupeKey,
	})

	existing, err := p.store.GetByDedupeKey(ctx, req.DedupeKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Debug("Signal already recorded for dedupe key")
		return existing, nil
	}

	signal := &models.Signal{
		ID:        uuid.New().String(),
		Source:    req.Source,
		DedupeKey: req.DedupeKey,
		Payload:   database.JSONB[map[string]any]{Data: req.Payload},
		Status:    models.SignalStatusNew,
		CreatedAt: time.Now().UTC(),
	}

	// Insert-if-absent: a concurrent create with the same key returns the
	// surviving row instead of erroring
	survivor, created, err := p.store.Insert(ctx, signal)
	if err != nil {
		return nil, err
	}

	if created {
		log.WithFields(map[string]any{"signal_id": survivor.ID}).Debug("Created signal")
		if p.emitter != nil {
			p.emitter.EmitSignalCreated(ctx, survivor)
		}
	}
	return survivor, nil
}

// UpdateStatus moves a signal forward through its lifecycle. Backward moves
// are rejected; unknown ids surface as not-found.
func (p *Processor) UpdateStatus(ctx context.Context, id string, status models.SignalStatus, processedAt *time.Time) (*models.Signal, error) {
	ctx, span := tracing.StartSpan(ctx, "signals.Processor.UpdateStatus")
	defer span.End()

	if !status.Valid() {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown signal status %q", status))
	}

	signal, err := p.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !signal.Status.CanTransitionTo(status) {
		return nil, httperror.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("cannot transition signal from %q to %q", signal.Status, status))
	}

	if status.Terminal() && processedAt == nil {
		now := time.Now().UTC()
		processedAt = &now
	}

	// The swap is conditioned on the status just read: a concurrent
	// transition surfaces as a conflict instead of silently moving backward
	updated, err := p.store.UpdateStatus(ctx, id, signal.Status, status, processedAt)
	if err != nil {
		return nil, err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"signal_id": id,
		"status":    status,
	}).Debug("Updated signal status")

	return updated, nil
}
