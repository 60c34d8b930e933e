package evidence

import (
	"context"
	"encoding/xml"
	"time"

	"github.com/google/uuid"

	"courier/pkg/models"
)

// XMLBuilder renders an unsigned ETSI REM evidence document. Deployments
// with a signature toolkit wrap or replace this builder; the connector logic
// only cares about the confirmation type and raw bytes.
type XMLBuilder struct{}

func NewXMLBuilder() *XMLBuilder {
	return &XMLBuilder{}
}

type remEvidence struct {
	XMLName        xml.Name `xml:"REMEvidence"`
	EventCode      string   `xml:"EventCode"`
	EvidenceID     string   `xml:"EvidenceIdentifier"`
	IssueTime      string   `xml:"EventTime"`
	MessageID      string   `xml:"MessageIdentifier"`
	Sender         string   `xml:"SenderDetails>AttributedElectronicAddress,omitempty"`
	Recipient      string   `xml:"RecipientsDetails>AttributedElectronicAddress,omitempty"`
	EventReason    string   `xml:"EventReasons>EventReason>Code,omitempty"`
	EventReasonTxt string   `xml:"EventReasons>EventReason>Details,omitempty"`
}

var eventCodes = map[models.EvidenceType]string{
	models.EvidenceSubmissionAcceptance: "Acceptance",
	models.EvidenceSubmissionRejection:  "Rejection",
	models.EvidenceRelayREMMDAcceptance: "RelayAcceptance",
	models.EvidenceRelayREMMDRejection:  "RelayRejection",
	models.EvidenceRelayREMMDFailure:    "RelayFailure",
	models.EvidenceDelivery:             "Delivery",
	models.EvidenceNonDelivery:          "DeliveryExpiration",
	models.EvidenceRetrieval:            "Retrieval",
	models.EvidenceNonRetrieval:         "RetrievalExpiration",
}

func (b *XMLBuilder) Build(ctx context.Context, evidenceType models.EvidenceType, msg *StoredMessage, reason models.RejectionReason, detail string) ([]byte, error) {
	messageID := msg.Details.GatewayMessageID
	if messageID == "" {
		messageID = msg.Details.BackendMessageID
	}

	doc := remEvidence{
		EventCode:      eventCodes[evidenceType],
		EvidenceID:     uuid.NewString(),
		IssueTime:      time.Now().UTC().Format(time.RFC3339),
		MessageID:      messageID,
		Sender:         msg.Details.OriginalSender,
		Recipient:      msg.Details.FinalRecipient,
		EventReason:    string(reason),
		EventReasonTxt: detail,
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
