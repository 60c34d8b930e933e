package models

import "time"

// PartyRoleType marks which side opened the message exchange.
type PartyRoleType string

const (
	RoleTypeInitiator PartyRoleType = "INITIATOR"
	RoleTypeResponder PartyRoleType = "RESPONDER"
)

// Party is one participant of a message exchange as addressed on the wire.
type Party struct {
	PartyID     string        `json:"party_id"`
	PartyIDType string        `json:"party_id_type"`
	Role        string        `json:"role,omitempty"`
	RoleType    PartyRoleType `json:"role_type"`
}

// Service names the e-delivery service the message belongs to.
type Service struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// MessageDetails carries the addressing and correlation attributes of a
// connector message. It is the input of routing decisions and the subject of
// direction switching.
type MessageDetails struct {
	DomainID              string           `json:"domain_id"`
	BackendMessageID      string           `json:"backend_message_id,omitempty"`
	GatewayMessageID      string           `json:"gateway_message_id,omitempty"`
	ConversationID        string           `json:"conversation_id,omitempty"`
	RefToMessageID        string           `json:"ref_to_message_id,omitempty"`
	RefToBackendMessageID string           `json:"ref_to_backend_message_id,omitempty"`
	Direction             MessageDirection `json:"direction"`
	OriginalSender        string           `json:"original_sender,omitempty"`
	FinalRecipient        string           `json:"final_recipient,omitempty"`
	FromParty             Party            `json:"from_party"`
	ToParty               Party            `json:"to_party"`
	Service               Service          `json:"service"`
	Action                string           `json:"action"`
	BackendLink           string           `json:"backend_link,omitempty"`
}

// MessageContent is the business payload of a message. Evidence messages and
// evidence triggers carry no content.
type MessageContent struct {
	DocumentName string `json:"document_name,omitempty"`
	Document     []byte `json:"document,omitempty"`
}

// MessageConfirmation is a single piece of transport evidence attached to a
// message. Evidence holds the raw signed ETSI REM document; a confirmation
// with empty Evidence inside an otherwise empty message is a generation
// trigger, not evidence itself.
type MessageConfirmation struct {
	Type     EvidenceType    `json:"type"`
	Evidence []byte          `json:"evidence,omitempty"`
	Reason   RejectionReason `json:"reason,omitempty"`
}

// Message is the connector's internal representation of anything transported
// between a backend and the gateway: business messages, evidence messages and
// evidence triggers.
type Message struct {
	ConnectorMessageID string                `json:"connector_message_id"`
	Details            MessageDetails        `json:"details"`
	Content            *MessageContent       `json:"content,omitempty"`
	Confirmations      []MessageConfirmation `json:"confirmations,omitempty"`
	Received           time.Time             `json:"received,omitempty"`
}
