// Package events publishes intake lifecycle events for downstream consumers.
// Emission is best-effort: a broker failure never fails the core operation.
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/priority"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter hands plain scalar/struct data to the event topic. It holds no
// domain logic and is safe to leave nil in the services that accept it.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitDocumentStored emits a document.stored event
func (e *Emitter) EmitDocumentStored(ctx context.Context, blob *models.ContentBlob) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDocumentStored")
	defer span.End()

	e.publish(ctx, "document.stored", blob.Hash, blob)
}

// EmitPartyResolved emits a party.resolved event with tier and confidence
func (e *Emitter) EmitPartyResolved(ctx context.Context, result *models.ResolutionResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPartyResolved")
	defer span.End()

	e.publish(ctx, "party.resolved", result.Party.ID, map[string]any{
		"party_id":   result.Party.ID,
		"matched":    result.Matched,
		"confidence": result.Confidence,
		"tier":       result.Tier,
		"reason":     result.Reason,
	})
}

// EmitCommitmentScored emits a commitment.scored event with the factor breakdown
func (e *Emitter) EmitCommitmentScored(ctx context.Context, commitmentID string, result *priority.PriorityResult) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCommitmentScored")
	defer span.End()

	e.publish(ctx, "commitment.scored", commitmentID, map[string]any{
		"commitment_id": commitmentID,
		"score":         result.Score,
		"reason":        result.Reason,
		"factor_scores": result.FactorScores,
	})
}

// EmitSignalCreated emits a signal.created event
func (e *Emitter) EmitSignalCreated(ctx context.Context, signal *models.Signal) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitSignalCreated")
	defer span.End()

	e.publish(ctx, "signal.created", signal.ID, map[string]any{
		"signal_id":  signal.ID,
		"source":     signal.Source,
		"dedupe_key": signal.DedupeKey,
		"status":     signal.Status,
	})
}

func (e *Emitter) publish(ctx context.Context, eventType string, subject string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"event_type": eventType}).Error("Failed to marshal event data")
		return
	}

	event := &kafka.IntakeEvent{
		EventType: eventType,
		Subject:   subject,
		Data:      payload,
	}

	if err := e.producer.PublishIntakeEvent(ctx, event); err != nil {
		// Already logged by the producer; the core operation continues
		return
	}
}
