package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier/internal/evidence"
	"courier/internal/logger"
	"courier/internal/routing"
	"courier/pkg/metrics"
	"courier/pkg/models"
	"courier/pkg/tracing"
)

const envelopeSourceConnector = "connector"

// Processor is the message pipeline: it classifies inbound envelopes from
// the backend and gateway topics, routes business messages, applies
// evidences to the message lifecycle and forwards generated evidences to
// the opposite side.
type Processor struct {
	store      evidence.Store
	lifecycle  *evidence.Lifecycle
	creator    *evidence.Creator
	archive    evidence.Archive
	router     *routing.Service
	dispatcher *Dispatcher
	guard      *IdempotencyGuard
	logger     logger.Logger
}

func NewProcessor(
	store evidence.Store,
	lifecycle *evidence.Lifecycle,
	creator *evidence.Creator,
	archive evidence.Archive,
	router *routing.Service,
	dispatcher *Dispatcher,
	guard *IdempotencyGuard,
	log logger.Logger,
) *Processor {
	return &Processor{
		store:      store,
		lifecycle:  lifecycle,
		creator:    creator,
		archive:    archive,
		router:     router,
		dispatcher: dispatcher,
		guard:      guard,
		logger:     log,
	}
}

// HandleBackendMessage consumes envelopes submitted by backend systems.
func (p *Processor) HandleBackendMessage(ctx context.Context, env models.MessageEnvelope) error {
	return p.handle(ctx, env, models.DirectionBackendToGateway)
}

// HandleGatewayMessage consumes envelopes received from the gateway.
func (p *Processor) HandleGatewayMessage(ctx context.Context, env models.MessageEnvelope) error {
	return p.handle(ctx, env, models.DirectionGatewayToBackend)
}

func (p *Processor) handle(ctx context.Context, env models.MessageEnvelope, direction models.MessageDirection) error {
	ctx, span := tracing.GetTracer("connector-service").Start(ctx, "processing.handle")
	defer span.End()

	start := time.Now()

	// Normalize before validating: the consuming topic authoritatively
	// determines the direction, and messages without a connector ID get one
	// assigned here.
	if msg := env.Message; msg != nil {
		msg.Details.Direction = direction
		if msg.Details.DomainID == "" {
			msg.Details.DomainID = env.DomainID
		}
		if msg.ConnectorMessageID == "" {
			msg.ConnectorMessageID = uuid.NewString()
		}
	}

	if err := models.ValidateMessageEnvelope(&env); err != nil {
		// Malformed envelopes never become processable; park them directly.
		p.recordOutcome("invalid", "error", start)
		return fmt.Errorf("invalid envelope: %w", err)
	}

	first, err := p.guard.FirstSeen(ctx, env.ID)
	if err != nil {
		p.recordOutcome("unknown", "error", start)
		return err
	}
	if !first {
		p.logger.InfowCtx(ctx, "Dropping duplicate envelope",
			"envelope_id", env.ID,
		)
		p.recordOutcome("duplicate", "dropped", start)
		return nil
	}

	msg := env.Message

	kind := msg.Classify()
	var handleErr error
	switch kind {
	case models.KindBusiness:
		handleErr = p.processBusiness(ctx, env)
	case models.KindEvidence:
		handleErr = p.processEvidence(ctx, env)
	case models.KindEvidenceTrigger:
		handleErr = p.processTrigger(ctx, env)
	default:
		handleErr = fmt.Errorf("envelope %s carries neither content nor confirmations", env.ID)
	}

	status := "success"
	if handleErr != nil {
		status = "error"
	}
	p.recordOutcome(string(kind), status, start)
	return handleErr
}

func (p *Processor) recordOutcome(kind, status string, start time.Time) {
	metrics.MessagesProcessedTotal.WithLabelValues(kind, status).Inc()
	metrics.ObserveProcessingDuration(kind, time.Since(start), status)
}

// processBusiness persists a business message and hands it to the other
// side: outbound messages go to the gateway topic, inbound ones are routed
// onto a backend link.
func (p *Processor) processBusiness(ctx context.Context, env models.MessageEnvelope) error {
	msg := env.Message
	switch msg.Details.Direction {
	case models.DirectionBackendToGateway:
		return p.processOutboundBusiness(ctx, env)
	case models.DirectionGatewayToBackend:
		return p.processInboundBusiness(ctx, env)
	default:
		return fmt.Errorf("message %s has no usable direction", msg.ConnectorMessageID)
	}
}

func (p *Processor) processOutboundBusiness(ctx context.Context, env models.MessageEnvelope) error {
	msg := env.Message
	stored := &evidence.StoredMessage{
		ConnectorMessageID: msg.ConnectorMessageID,
		DomainID:           msg.Details.DomainID,
		Details:            msg.Details,
		CreatedAt:          time.Now().UTC(),
	}
	if err := p.store.Save(ctx, stored); err != nil {
		return fmt.Errorf("failed to persist outbound message: %w", err)
	}

	out := models.NewMessageEnvelopeBuilder().
		WithID(uuid.NewString()).
		WithSource(envelopeSourceConnector).
		WithMessage(msg).
		WithTraceID(env.Metadata.TraceID).
		Build()
	if err := p.dispatcher.ToGateway(ctx, *out); err != nil {
		p.rejectSubmission(ctx, stored, env.Metadata.TraceID)
		return fmt.Errorf("failed to submit message to gateway: %w", err)
	}

	now := time.Now().UTC()
	if err := p.store.MarkDeliveredToGateway(ctx, msg.ConnectorMessageID, now); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to mark gateway handover",
			"error", err,
			"connector_message_id", msg.ConnectorMessageID,
		)
	}
	p.logger.InfowCtx(ctx, "Business message submitted to gateway",
		"connector_message_id", msg.ConnectorMessageID,
		"domain_id", msg.Details.DomainID,
	)

	// Confirm the submission toward the backend right away; the remaining
	// evidences follow asynchronously from the gateway.
	stored.DeliveredToGatewayAt = &now
	conf, err := p.creator.CreateSubmissionAcceptance(ctx, stored)
	if err != nil {
		return fmt.Errorf("failed to create submission acceptance: %w", err)
	}
	if _, err := p.lifecycle.ApplyEvidence(ctx, stored, conf); err != nil {
		return fmt.Errorf("failed to apply submission acceptance: %w", err)
	}
	p.archiveConfirmation(ctx, stored, conf, true)

	return p.dispatchEvidence(ctx, stored, conf, env.Metadata.TraceID)
}

// rejectSubmission answers a failed gateway handover with a
// SUBMISSION_REJECTION toward the backend. The submission error itself is
// still returned to the broker, so failures here are only logged.
func (p *Processor) rejectSubmission(ctx context.Context, stored *evidence.StoredMessage, traceID string) {
	conf, err := p.creator.CreateSubmissionRejection(ctx, stored, models.ReasonGatewayRejection)
	if err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to create submission rejection",
			"error", err,
			"connector_message_id", stored.ConnectorMessageID,
		)
		return
	}
	if _, err := p.lifecycle.ApplyEvidence(ctx, stored, conf); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to apply submission rejection",
			"error", err,
			"connector_message_id", stored.ConnectorMessageID,
		)
		return
	}
	p.archiveConfirmation(ctx, stored, conf, true)
	if err := p.dispatchEvidence(ctx, stored, conf, traceID); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to forward submission rejection",
			"error", err,
			"connector_message_id", stored.ConnectorMessageID,
		)
	}
}

func (p *Processor) processInboundBusiness(ctx context.Context, env models.MessageEnvelope) error {
	msg := env.Message

	info, err := p.resolveBackendLink(ctx, msg)
	if err != nil {
		return err
	}
	msg.Details.BackendLink = info.LinkName

	stored := &evidence.StoredMessage{
		ConnectorMessageID: msg.ConnectorMessageID,
		DomainID:           msg.Details.DomainID,
		Details:            msg.Details,
		CreatedAt:          time.Now().UTC(),
	}
	if err := p.store.Save(ctx, stored); err != nil {
		return fmt.Errorf("failed to persist inbound message: %w", err)
	}

	out := models.NewMessageEnvelopeBuilder().
		WithID(uuid.NewString()).
		WithSource(envelopeSourceConnector).
		WithMessage(msg).
		WithTraceID(env.Metadata.TraceID).
		WithRouting(info).
		Build()
	if err := p.dispatcher.ToBackend(ctx, info.LinkName, *out); err != nil {
		return fmt.Errorf("failed to deliver message to backend link %s: %w", info.LinkName, err)
	}

	if err := p.store.MarkDeliveredToBackend(ctx, msg.ConnectorMessageID, time.Now().UTC()); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to mark backend handover",
			"error", err,
			"connector_message_id", msg.ConnectorMessageID,
		)
	}
	p.logger.InfowCtx(ctx, "Business message delivered to backend",
		"connector_message_id", msg.ConnectorMessageID,
		"domain_id", msg.Details.DomainID,
		"backend_link", info.LinkName,
		"rule_id", info.RuleID,
	)
	return nil
}

// resolveBackendLink decides the backend link for an inbound message.
// Replies and conversation members stick to the link of the message they
// continue; everything else goes through the routing rules.
func (p *Processor) resolveBackendLink(ctx context.Context, msg *models.Message) (models.RoutingInfo, error) {
	if refID := msg.Details.RefToMessageID; refID != "" {
		if prior, err := p.store.FindByRefID(ctx, msg.Details.DomainID, refID); err == nil && prior.Details.BackendLink != "" {
			return models.RoutingInfo{LinkName: prior.Details.BackendLink, DecidedAt: time.Now().UTC()}, nil
		}
	}
	if convID := msg.Details.ConversationID; convID != "" {
		if prior, err := p.store.FindByConversationID(ctx, msg.Details.DomainID, convID); err == nil && prior.Details.BackendLink != "" {
			return models.RoutingInfo{LinkName: prior.Details.BackendLink, DecidedAt: time.Now().UTC()}, nil
		}
	}

	info, err := p.router.ResolveLink(ctx, msg.Details.DomainID, msg.Details)
	if err != nil {
		if errors.Is(err, routing.ErrNoLink) {
			return models.RoutingInfo{}, models.NewBusinessError(models.ErrCodePartyUnreachable,
				fmt.Errorf("no backend link for message %s: %w", msg.ConnectorMessageID, err))
		}
		return models.RoutingInfo{}, err
	}
	return info, nil
}

// processEvidence applies received confirmations to the referenced business
// message and forwards them to its other side.
func (p *Processor) processEvidence(ctx context.Context, env models.MessageEnvelope) error {
	msg := env.Message
	business, err := p.findReferencedMessage(ctx, msg)
	if err != nil {
		return err
	}

	for _, conf := range msg.Confirmations {
		decision, err := p.lifecycle.ApplyEvidence(ctx, business, conf)
		if err != nil {
			return fmt.Errorf("failed to apply %s evidence: %w", conf.Type, err)
		}
		p.archiveConfirmation(ctx, business, conf, false)
		if decision.Ignored() {
			p.logger.InfowCtx(ctx, "Evidence not forwarded",
				"connector_message_id", business.ConnectorMessageID,
				"evidence_type", conf.Type,
				"reason", decision.IgnoreReason,
				"reason_text", decision.IgnoreReason.Text(),
			)
			continue
		}
		if err := p.dispatchEvidence(ctx, business, conf, env.Metadata.TraceID); err != nil {
			return err
		}
	}
	return nil
}

// processTrigger turns an empty confirmation into a full evidence built from
// the stored business message, applies it, forwards it to the opposite side
// and echoes it back to the triggering side.
func (p *Processor) processTrigger(ctx context.Context, env models.MessageEnvelope) error {
	msg := env.Message
	// Triggers only come from backend link partners; the gateway sends
	// signed evidence, never generation requests.
	if msg.Details.Direction != models.DirectionBackendToGateway {
		return fmt.Errorf("evidence trigger %s arrived from the gateway side", msg.ConnectorMessageID)
	}
	business, err := p.findReferencedMessage(ctx, msg)
	if err != nil {
		return err
	}

	trigger := msg.Confirmations[0]
	reason := models.RejectionReason("")
	if !trigger.Type.IsPositive() {
		reason = models.ReasonBackendRejection
	}

	conf, err := p.creator.CreateEvidence(ctx, trigger.Type, business, reason)
	if err != nil {
		return fmt.Errorf("failed to build triggered %s evidence: %w", trigger.Type, err)
	}

	decision, err := p.lifecycle.ApplyEvidence(ctx, business, conf)
	if err != nil {
		return fmt.Errorf("failed to apply triggered evidence: %w", err)
	}
	p.archiveConfirmation(ctx, business, conf, true)
	if decision.Ignored() {
		p.logger.InfowCtx(ctx, "Triggered evidence ignored",
			"connector_message_id", business.ConnectorMessageID,
			"evidence_type", conf.Type,
			"reason", decision.IgnoreReason,
		)
		return nil
	}

	if err := p.dispatchEvidence(ctx, business, conf, env.Metadata.TraceID); err != nil {
		return err
	}
	return p.echoEvidence(ctx, business, conf, msg.Details.Direction, env.Metadata.TraceID)
}

// SubmitGeneratedEvidence dispatches an evidence synthesized by the timeout
// scanner the same way a triggered evidence travels.
func (p *Processor) SubmitGeneratedEvidence(ctx context.Context, business *evidence.StoredMessage, conf models.MessageConfirmation) error {
	p.archiveConfirmation(ctx, business, conf, true)
	return p.dispatchEvidence(ctx, business, conf, "")
}

// findReferencedMessage resolves the business message an evidence points at.
// The reference may carry either side's message ID; the conversation is the
// last resort.
func (p *Processor) findReferencedMessage(ctx context.Context, msg *models.Message) (*evidence.StoredMessage, error) {
	domainID := msg.Details.DomainID
	for _, refID := range []string{msg.Details.RefToMessageID, msg.Details.RefToBackendMessageID} {
		if refID == "" {
			continue
		}
		business, err := p.store.FindByRefID(ctx, domainID, refID)
		if err == nil {
			return business, nil
		}
		if !errors.Is(err, evidence.ErrMessageNotFound) {
			return nil, err
		}
	}
	if convID := msg.Details.ConversationID; convID != "" {
		business, err := p.store.FindByConversationID(ctx, domainID, convID)
		if err == nil {
			return business, nil
		}
		if !errors.Is(err, evidence.ErrMessageNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("evidence references no known business message (ref=%q, conversation=%q): %w",
		msg.Details.RefToMessageID, msg.Details.ConversationID, evidence.ErrMessageNotFound)
}

// dispatchEvidence sends an evidence to the party opposite the business
// message's submitter: evidences about outbound messages go back to the
// backend, evidences about inbound messages go to the gateway.
func (p *Processor) dispatchEvidence(ctx context.Context, business *evidence.StoredMessage, conf models.MessageConfirmation, traceID string) error {
	env := p.evidenceEnvelope(business, conf, traceID)

	switch business.Details.Direction {
	case models.DirectionBackendToGateway:
		link := business.Details.BackendLink
		if link == "" {
			p.logger.WarnwCtx(ctx, "Business message has no backend link, evidence not forwarded",
				"connector_message_id", business.ConnectorMessageID,
				"evidence_type", conf.Type,
			)
			return nil
		}
		return p.dispatcher.ToBackend(ctx, link, *env)
	case models.DirectionGatewayToBackend:
		return p.dispatcher.ToGateway(ctx, *env)
	default:
		return fmt.Errorf("message %s has no usable direction", business.ConnectorMessageID)
	}
}

// echoEvidence sends the generated evidence back in the direction the
// trigger came from, so the triggering side also holds the final document.
func (p *Processor) echoEvidence(ctx context.Context, business *evidence.StoredMessage, conf models.MessageConfirmation, triggerDirection models.MessageDirection, traceID string) error {
	env := p.evidenceEnvelope(business, conf, traceID)

	switch triggerDirection {
	case models.DirectionBackendToGateway:
		link := business.Details.BackendLink
		if link == "" {
			return nil
		}
		return p.dispatcher.ToBackend(ctx, link, *env)
	case models.DirectionGatewayToBackend:
		return p.dispatcher.ToGateway(ctx, *env)
	default:
		return nil
	}
}

// evidenceEnvelope wraps a confirmation in a message traveling opposite to
// the business message, referencing it on both sides.
func (p *Processor) evidenceEnvelope(business *evidence.StoredMessage, conf models.MessageConfirmation, traceID string) *models.MessageEnvelope {
	details := business.Details.SwitchDirection()
	details.RefToMessageID = business.Details.GatewayMessageID
	if details.RefToMessageID == "" {
		details.RefToMessageID = business.Details.BackendMessageID
	}
	details.RefToBackendMessageID = business.Details.BackendMessageID
	details.BackendMessageID = ""
	details.GatewayMessageID = ""

	msg := &models.Message{
		ConnectorMessageID: uuid.NewString(),
		Details:            details,
		Confirmations:      []models.MessageConfirmation{conf},
	}

	return models.NewMessageEnvelopeBuilder().
		WithID(uuid.NewString()).
		WithSource(envelopeSourceConnector).
		WithMessage(msg).
		WithTraceID(traceID).
		Build()
}

func (p *Processor) archiveConfirmation(ctx context.Context, business *evidence.StoredMessage, conf models.MessageConfirmation, generated bool) {
	if p.archive == nil {
		return
	}
	doc := evidence.ArchivedEvidence{
		ConnectorMessageID: business.ConnectorMessageID,
		DomainID:           business.DomainID,
		EvidenceType:       conf.Type,
		Evidence:           conf.Evidence,
		Generated:          generated,
	}
	if err := p.archive.Store(ctx, doc); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to archive evidence",
			"error", err,
			"connector_message_id", business.ConnectorMessageID,
			"evidence_type", conf.Type,
		)
	}
}
