package evidence

import (
	"context"
	"time"

	"courier/internal/config"
	"courier/internal/logger"
	"courier/pkg/metrics"
	"courier/pkg/models"
	"courier/pkg/tracing"
)

// Dispatcher submits a connector-generated evidence back toward the party
// that needs to learn about it.
type Dispatcher interface {
	SubmitGeneratedEvidence(ctx context.Context, msg *StoredMessage, conf models.MessageConfirmation) error
}

// TimeoutScanner periodically sweeps pending messages whose expected
// evidences never arrived and synthesizes the matching negative evidence
// through the normal lifecycle path. One broken message never aborts the
// sweep, and the store queries exclude already-decided messages, so a sweep
// can run on every instance without double effects.
type TimeoutScanner struct {
	store          Store
	creator        *Creator
	lifecycle      *Lifecycle
	dispatcher     Dispatcher
	evidenceConfig config.EvidenceConfig
	logger         logger.Logger
}

func NewTimeoutScanner(store Store, creator *Creator, lifecycle *Lifecycle, dispatcher Dispatcher, cfg config.EvidenceConfig, log logger.Logger) *TimeoutScanner {
	return &TimeoutScanner{
		store:          store,
		creator:        creator,
		lifecycle:      lifecycle,
		dispatcher:     dispatcher,
		evidenceConfig: cfg,
		logger:         log,
	}
}

// Run drives ScanOnce on the configured interval until the context ends.
func (s *TimeoutScanner) Run(ctx context.Context) error {
	interval := time.Duration(s.evidenceConfig.Timeouts.CheckIntervalSeconds) * time.Second
	if interval <= 0 {
		s.logger.Infow("Evidence timeout scanner disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.ScanOnce(ctx, time.Now())
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ScanOnce runs the relay, delivery and retrieval sweeps against the given
// reference time.
func (s *TimeoutScanner) ScanOnce(ctx context.Context, now time.Time) {
	ctx, span := tracing.GetTracer("connector-service").Start(ctx, "evidence.timeout_scan")
	defer span.End()

	s.scanRelayTimeouts(ctx, now)
	s.scanDeliveryTimeouts(ctx, now)
	s.scanRetrievalTimeouts(ctx, now)
}

func (s *TimeoutScanner) scanRelayTimeouts(ctx context.Context, now time.Time) {
	candidates, err := s.store.FindWithoutRelayEvidence(ctx)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to load relay timeout candidates", "error", err)
		return
	}

	for _, msg := range candidates {
		cfg := s.evidenceConfig.ForDomain(msg.DomainID)
		if cfg.RelayTimeout <= 0 {
			continue
		}

		since := now.Sub(s.relayClockStart(msg))
		switch {
		case since > cfg.RelayTimeout:
			s.expire(ctx, msg, models.EvidenceRelayREMMDFailure, models.ReasonRelayTimeout)
		case cfg.RelayWarnTimeout > 0 && since > cfg.RelayWarnTimeout:
			s.logger.WarnwCtx(ctx, "Message approaching relay evidence timeout",
				"connector_message_id", msg.ConnectorMessageID,
				"domain_id", msg.DomainID,
				"pending_for", since.String(),
			)
		}
	}
}

func (s *TimeoutScanner) scanDeliveryTimeouts(ctx context.Context, now time.Time) {
	candidates, err := s.store.FindWithoutDeliveryEvidence(ctx)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to load delivery timeout candidates", "error", err)
		return
	}

	for _, msg := range candidates {
		cfg := s.evidenceConfig.ForDomain(msg.DomainID)
		if cfg.DeliveryTimeout <= 0 {
			continue
		}

		since := now.Sub(s.deliveryClockStart(msg))
		switch {
		case since > cfg.DeliveryTimeout:
			s.expire(ctx, msg, models.EvidenceNonDelivery, models.ReasonDeliveryTimeout)
		case cfg.DeliveryWarnTimeout > 0 && since > cfg.DeliveryWarnTimeout:
			s.logger.WarnwCtx(ctx, "Message approaching delivery evidence timeout",
				"connector_message_id", msg.ConnectorMessageID,
				"domain_id", msg.DomainID,
				"pending_for", since.String(),
			)
		}
	}
}

func (s *TimeoutScanner) scanRetrievalTimeouts(ctx context.Context, now time.Time) {
	candidates, err := s.store.FindWithoutRetrievalEvidence(ctx)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to load retrieval timeout candidates", "error", err)
		return
	}

	for _, msg := range candidates {
		cfg := s.evidenceConfig.ForDomain(msg.DomainID)
		if cfg.RetrievalTimeout <= 0 {
			continue
		}

		if now.Sub(s.deliveryClockStart(msg)) > cfg.RetrievalTimeout {
			s.expire(ctx, msg, models.EvidenceNonRetrieval, models.ReasonRetrievalTimeout)
		}
	}
}

// relayClockStart: the relay deadline counts from the moment the message
// reached the gateway, falling back to reception.
func (s *TimeoutScanner) relayClockStart(msg *StoredMessage) time.Time {
	if msg.DeliveredToGatewayAt != nil {
		return *msg.DeliveredToGatewayAt
	}
	return msg.CreatedAt
}

// deliveryClockStart: the delivery deadline counts from the handover on the
// receiving side of the message's direction.
func (s *TimeoutScanner) deliveryClockStart(msg *StoredMessage) time.Time {
	switch msg.Details.Direction {
	case models.DirectionGatewayToBackend:
		if msg.DeliveredToBackendAt != nil {
			return *msg.DeliveredToBackendAt
		}
	case models.DirectionBackendToGateway:
		if msg.DeliveredToGatewayAt != nil {
			return *msg.DeliveredToGatewayAt
		}
	}
	return msg.CreatedAt
}

// expire synthesizes one negative evidence for the message and hands it to
// the dispatcher. Failures are logged and the sweep moves on; the next run
// picks the message up again.
func (s *TimeoutScanner) expire(ctx context.Context, msg *StoredMessage, evidenceType models.EvidenceType, reason models.RejectionReason) {
	conf, err := s.creator.CreateEvidence(ctx, evidenceType, msg, reason)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to create timeout evidence",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"error", err,
		)
		return
	}

	decision, err := s.lifecycle.ApplyEvidence(ctx, msg, conf)
	if err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to apply timeout evidence",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"error", err,
		)
		return
	}
	if decision.Ignored() {
		s.logger.InfowCtx(ctx, "Timeout evidence ignored by lifecycle",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"reason", decision.IgnoreReason,
		)
		return
	}

	if err := s.dispatcher.SubmitGeneratedEvidence(ctx, msg, conf); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to dispatch timeout evidence",
			"connector_message_id", msg.ConnectorMessageID,
			"evidence_type", evidenceType,
			"error", err,
		)
		return
	}

	metrics.EvidenceTimeoutsTotal.WithLabelValues(string(evidenceType), msg.DomainID).Inc()
	s.logger.InfowCtx(ctx, "Message expired by evidence timeout",
		"connector_message_id", msg.ConnectorMessageID,
		"domain_id", msg.DomainID,
		"evidence_type", evidenceType,
		"reason", reason,
	)
}
