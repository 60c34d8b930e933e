package models

import "fmt"

// EvidenceType is the closed set of ETSI REM transport evidences the
// connector understands.
type EvidenceType string

const (
	EvidenceSubmissionAcceptance EvidenceType = "SUBMISSION_ACCEPTANCE"
	EvidenceSubmissionRejection  EvidenceType = "SUBMISSION_REJECTION"
	EvidenceRelayREMMDAcceptance EvidenceType = "RELAY_REMMD_ACCEPTANCE"
	EvidenceRelayREMMDRejection  EvidenceType = "RELAY_REMMD_REJECTION"
	EvidenceRelayREMMDFailure    EvidenceType = "RELAY_REMMD_FAILURE"
	EvidenceDelivery             EvidenceType = "DELIVERY"
	EvidenceNonDelivery          EvidenceType = "NON_DELIVERY"
	EvidenceRetrieval            EvidenceType = "RETRIEVAL"
	EvidenceNonRetrieval         EvidenceType = "NON_RETRIEVAL"
)

// UnboundedOccurrence marks evidence types that may legally appear any number
// of times on one message.
const UnboundedOccurrence = -1

type evidenceAttributes struct {
	priority      int
	positive      bool
	maxOccurrence int
	action        string
}

// Each evidence type carries a fixed priority (higher outranks lower when
// deciding the final message state), a polarity, an occurrence bound and the
// ebMS action name used when the evidence travels as its own message.
var evidenceCatalog = map[EvidenceType]evidenceAttributes{
	EvidenceSubmissionAcceptance: {priority: 1, positive: true, maxOccurrence: 1, action: "SubmissionAcceptanceRejection"},
	EvidenceSubmissionRejection:  {priority: 2, positive: false, maxOccurrence: 1, action: "SubmissionAcceptanceRejection"},
	EvidenceRelayREMMDAcceptance: {priority: 3, positive: true, maxOccurrence: 1, action: "RelayREMMDAcceptanceRejection"},
	EvidenceRelayREMMDRejection:  {priority: 4, positive: false, maxOccurrence: 1, action: "RelayREMMDAcceptanceRejection"},
	EvidenceRelayREMMDFailure:    {priority: 5, positive: false, maxOccurrence: 1, action: "RelayREMMDFailure"},
	EvidenceDelivery:             {priority: 6, positive: true, maxOccurrence: 1, action: "DeliveryNonDeliveryToRecipient"},
	EvidenceNonDelivery:          {priority: 7, positive: false, maxOccurrence: 1, action: "DeliveryNonDeliveryToRecipient"},
	EvidenceRetrieval:            {priority: 8, positive: true, maxOccurrence: UnboundedOccurrence, action: "RetrievalNonRetrievalToRecipient"},
	EvidenceNonRetrieval:         {priority: 9, positive: false, maxOccurrence: 1, action: "RetrievalNonRetrievalToRecipient"},
}

func (t EvidenceType) IsValid() bool {
	_, ok := evidenceCatalog[t]
	return ok
}

// Priority orders evidence types for final-state decisions. A higher value
// supersedes lower ones; an unknown type has priority 0.
func (t EvidenceType) Priority() int {
	return evidenceCatalog[t].priority
}

// IsPositive reports whether the evidence confirms progress. Negative
// evidences reject the message.
func (t EvidenceType) IsPositive() bool {
	return evidenceCatalog[t].positive
}

// MaxOccurrence is how many confirmations of this type one message may
// accumulate, or UnboundedOccurrence.
func (t EvidenceType) MaxOccurrence() int {
	return evidenceCatalog[t].maxOccurrence
}

// Action is the ebMS action under which this evidence is transported.
func (t EvidenceType) Action() string {
	return evidenceCatalog[t].action
}

func ParseEvidenceType(s string) (EvidenceType, error) {
	t := EvidenceType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown evidence type %q", s)
	}
	return t, nil
}

// AllEvidenceTypes returns the catalog in priority order.
func AllEvidenceTypes() []EvidenceType {
	return []EvidenceType{
		EvidenceSubmissionAcceptance,
		EvidenceSubmissionRejection,
		EvidenceRelayREMMDAcceptance,
		EvidenceRelayREMMDRejection,
		EvidenceRelayREMMDFailure,
		EvidenceDelivery,
		EvidenceNonDelivery,
		EvidenceRetrieval,
		EvidenceNonRetrieval,
	}
}

// RejectionReason explains why a negative evidence was generated by the
// connector itself.
type RejectionReason string

const (
	ReasonBackendRejection RejectionReason = "BACKEND_REJECTION"
	ReasonGatewayRejection RejectionReason = "GW_REJECTION"
	ReasonRelayTimeout     RejectionReason = "RELAY_REMMD_TIMEOUT"
	ReasonDeliveryTimeout  RejectionReason = "DELIVERY_EVIDENCE_TIMEOUT"
	ReasonRetrievalTimeout RejectionReason = "RETRIEVAL_EVIDENCE_TIMEOUT"
	ReasonOther            RejectionReason = "OTHER"
)

var rejectionDetails = map[RejectionReason]string{
	ReasonBackendRejection: "The backend system rejected the message.",
	ReasonGatewayRejection: "The gateway rejected the message.",
	ReasonRelayTimeout:     "No RelayREMMD evidence arrived within the configured timeout.",
	ReasonDeliveryTimeout:  "No delivery evidence arrived within the configured timeout.",
	ReasonRetrievalTimeout: "No retrieval evidence arrived within the configured timeout.",
	ReasonOther:            "The message could not be processed.",
}

func (r RejectionReason) Detail() string {
	if d, ok := rejectionDetails[r]; ok {
		return d
	}
	return rejectionDetails[ReasonOther]
}
