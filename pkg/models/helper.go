package models

// MessageKind is the routing classification of an inbound message. The three
// kinds are mutually exclusive; anything else is KindUnknown and must be
// rejected before processing.
type MessageKind string

const (
	KindBusiness        MessageKind = "BUSINESS_MESSAGE"
	KindEvidence        MessageKind = "EVIDENCE_MESSAGE"
	KindEvidenceTrigger MessageKind = "EVIDENCE_TRIGGER"
	KindUnknown         MessageKind = "UNKNOWN"
)

// Classify determines the message kind from content and confirmations.
//
// A business message carries content. A trigger is an empty message holding
// exactly one confirmation without evidence bytes: the party asks the
// connector to generate that evidence. Everything else with at least one
// confirmation is a transported evidence message.
func (m *Message) Classify() MessageKind {
	if m == nil {
		return KindUnknown
	}
	if m.Content != nil {
		return KindBusiness
	}
	if len(m.Confirmations) == 1 && len(m.Confirmations[0].Evidence) == 0 {
		return KindEvidenceTrigger
	}
	if len(m.Confirmations) > 0 {
		return KindEvidence
	}
	return KindUnknown
}

func (m *Message) IsBusinessMessage() bool {
	return m.Classify() == KindBusiness
}

func (m *Message) IsEvidenceMessage() bool {
	return m.Classify() == KindEvidence
}

func (m *Message) IsEvidenceTrigger() bool {
	return m.Classify() == KindEvidenceTrigger
}

// SwitchDirection derives the addressing of a reply travelling the opposite
// way. Party identities swap ends while the roles stay with their position:
// the new from-party takes the old to-party's identity but keeps the old
// from-party's role, and vice versa. Original sender and final recipient
// swap, and the role types are normalized to initiator/responder for the new
// direction. Applying the switch twice restores the original details when the
// original role types were already normalized.
func (d MessageDetails) SwitchDirection() MessageDetails {
	out := d
	out.Direction = d.Direction.Revert()
	out.FromParty = Party{
		PartyID:     d.ToParty.PartyID,
		PartyIDType: d.ToParty.PartyIDType,
		Role:        d.FromParty.Role,
		RoleType:    RoleTypeInitiator,
	}
	out.ToParty = Party{
		PartyID:     d.FromParty.PartyID,
		PartyIDType: d.FromParty.PartyIDType,
		Role:        d.ToParty.Role,
		RoleType:    RoleTypeResponder,
	}
	out.OriginalSender = d.FinalRecipient
	out.FinalRecipient = d.OriginalSender
	return out
}
