package evidence

import (
	"context"
	"fmt"

	"courier/pkg/models"
)

// Builder produces the raw evidence document for a confirmation. The real
// implementation signs with the domain's key material; tests and deployments
// without a signing toolkit plug in the plain XML builder.
type Builder interface {
	Build(ctx context.Context, evidenceType models.EvidenceType, msg *StoredMessage, reason models.RejectionReason, detail string) ([]byte, error)
}

// Creator turns connector-side events (timeouts, rejections, triggers) into
// message confirmations carrying a generated evidence document.
type Creator struct {
	builder Builder
}

func NewCreator(builder Builder) *Creator {
	return &Creator{builder: builder}
}

// CreateEvidence builds a confirmation of the given type for the business
// message. Negative types require a rejection reason.
func (c *Creator) CreateEvidence(ctx context.Context, evidenceType models.EvidenceType, msg *StoredMessage, reason models.RejectionReason) (models.MessageConfirmation, error) {
	if !evidenceType.IsValid() {
		return models.MessageConfirmation{}, fmt.Errorf("unknown evidence type %q", evidenceType)
	}
	if !evidenceType.IsPositive() && reason == "" {
		return models.MessageConfirmation{}, fmt.Errorf("negative evidence %s requires a rejection reason", evidenceType)
	}

	detail := ""
	if reason != "" {
		detail = reason.Detail()
	}

	raw, err := c.builder.Build(ctx, evidenceType, msg, reason, detail)
	if err != nil {
		return models.MessageConfirmation{}, fmt.Errorf("failed to build %s evidence: %w", evidenceType, err)
	}

	return models.MessageConfirmation{Type: evidenceType, Evidence: raw, Reason: reason}, nil
}

func (c *Creator) CreateSubmissionAcceptance(ctx context.Context, msg *StoredMessage) (models.MessageConfirmation, error) {
	return c.CreateEvidence(ctx, models.EvidenceSubmissionAcceptance, msg, "")
}

func (c *Creator) CreateSubmissionRejection(ctx context.Context, msg *StoredMessage, reason models.RejectionReason) (models.MessageConfirmation, error) {
	return c.CreateEvidence(ctx, models.EvidenceSubmissionRejection, msg, reason)
}
