package evidence

import (
	"context"
	"fmt"
	"time"

	"courier/internal/logger"
	"courier/pkg/metrics"
	"courier/pkg/models"
	"courier/pkg/tracing"
)

// Decision is the outcome of applying one evidence to a message.
type Decision struct {
	Applied      bool
	IgnoreReason models.BusinessErrorCode
	ConfirmedNow bool
	RejectedNow  bool
}

func (d Decision) Ignored() bool {
	return !d.Applied
}

// Lifecycle applies incoming evidences to the persisted message state. All
// work for one message is serialized through a per-message lock, and the
// state transitions themselves are compare-and-set in the store, so two
// connector instances cannot race each other into inconsistent timestamps.
type Lifecycle struct {
	store  Store
	locks  *keyedMutex
	logger logger.Logger
}

func NewLifecycle(store Store, log logger.Logger) *Lifecycle {
	return &Lifecycle{
		store:  store,
		locks:  newKeyedMutex(),
		logger: log,
	}
}

// ApplyEvidence runs the evidence decision rules against the message:
//
//  1. An evidence type past its occurrence bound is ignored as a duplicate.
//  2. An evidence outranked by an already present higher-priority evidence
//     is ignored, but still recorded in the history.
//  3. A positive evidence for an already rejected message is ignored.
//  4. Otherwise the evidence is applied: negative evidences reject the
//     message, delivery and retrieval confirm it, the remaining positive
//     evidences only extend the history.
func (l *Lifecycle) ApplyEvidence(ctx context.Context, msg *StoredMessage, conf models.MessageConfirmation) (Decision, error) {
	ctx, span := tracing.GetTracer("connector-service").Start(ctx, "evidence.apply")
	defer span.End()

	if !conf.Type.IsValid() {
		return Decision{}, fmt.Errorf("unknown evidence type %q", conf.Type)
	}

	unlock := l.locks.Lock(msg.ConnectorMessageID)
	defer unlock()

	// Re-read under the lock; the caller's copy may be stale.
	current, err := l.store.FindByConnectorID(ctx, msg.DomainID, msg.ConnectorMessageID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to load message %s: %w", msg.ConnectorMessageID, err)
	}

	decision, record, err := l.decide(ctx, current, conf)
	if err != nil {
		return Decision{}, err
	}

	if record {
		if err := l.store.AppendConfirmation(ctx, current.ConnectorMessageID, conf); err != nil {
			return Decision{}, err
		}
		msg.Confirmations = append(current.Confirmations, conf)
	}

	l.recordMetrics(conf.Type, decision)
	return decision, nil
}

func (l *Lifecycle) decide(ctx context.Context, msg *StoredMessage, conf models.MessageConfirmation) (Decision, bool, error) {
	evidenceType := conf.Type

	if bound := evidenceType.MaxOccurrence(); bound != models.UnboundedOccurrence && msg.CountOfType(evidenceType) >= bound {
		l.logger.WarnwCtx(ctx, "Evidence ignored, occurrence bound reached",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"max_occurrence", bound,
		)
		return Decision{IgnoreReason: models.ErrCodeEvidenceIgnoredDuplicate}, false, nil
	}

	if highest := msg.HighestPriority(); evidenceType.Priority() < highest {
		// Lower-priority stragglers stay in the history for audit but do
		// not influence the message state.
		l.logger.InfowCtx(ctx, "Evidence ignored, superseded by higher priority evidence",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"highest_priority", highest,
		)
		return Decision{IgnoreReason: models.ErrCodeEvidenceIgnoredHigherPriority}, true, nil
	}

	if !evidenceType.IsPositive() {
		rejectedNow, err := l.store.Reject(ctx, msg.ConnectorMessageID, time.Now())
		if err != nil {
			return Decision{}, false, err
		}
		l.logger.InfowCtx(ctx, "Message rejected by evidence",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"state_changed", rejectedNow,
		)
		return Decision{Applied: true, RejectedNow: rejectedNow}, true, nil
	}

	if msg.IsRejected() {
		l.logger.WarnwCtx(ctx, "Positive evidence ignored, message already rejected",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
		)
		return Decision{IgnoreReason: models.ErrCodeEvidenceIgnoredMessageRejected}, false, nil
	}

	confirmedNow := false
	if evidenceType == models.EvidenceDelivery || evidenceType == models.EvidenceRetrieval {
		var err error
		confirmedNow, err = l.store.Confirm(ctx, msg.ConnectorMessageID, time.Now())
		if err != nil {
			return Decision{}, false, err
		}
	}

	l.logger.DebugwCtx(ctx, "Evidence applied",
		"connector_message_id", msg.ConnectorMessageID,
		"evidence_type", evidenceType,
		"confirmed_now", confirmedNow,
	)
	return Decision{Applied: true, ConfirmedNow: confirmedNow}, true, nil
}

func (l *Lifecycle) recordMetrics(t models.EvidenceType, d Decision) {
	outcome := "applied"
	if d.Ignored() {
		outcome = "ignored_" + string(d.IgnoreReason)
	}
	metrics.EvidenceProcessedTotal.WithLabelValues(string(t), outcome).Inc()
}
