package models

import "fmt"

// MessageTarget identifies one side of the connector: the gateway toward the
// foreign e-delivery network, or a backend system behind the connector.
type MessageTarget string

const (
	TargetGateway MessageTarget = "GATEWAY"
	TargetBackend MessageTarget = "BACKEND"
)

func (t MessageTarget) IsValid() bool {
	return t == TargetGateway || t == TargetBackend
}

// MessageDirection is an ordered (source, target) pair over the two message
// targets. Only the two mixed combinations are valid.
type MessageDirection struct {
	Source MessageTarget `json:"source"`
	Target MessageTarget `json:"target"`
}

var (
	DirectionGatewayToBackend = MessageDirection{Source: TargetGateway, Target: TargetBackend}
	DirectionBackendToGateway = MessageDirection{Source: TargetBackend, Target: TargetGateway}
)

func (d MessageDirection) IsValid() bool {
	return d == DirectionGatewayToBackend || d == DirectionBackendToGateway
}

// Revert returns the opposite direction. Reverting twice yields the original.
func (d MessageDirection) Revert() MessageDirection {
	return MessageDirection{Source: d.Target, Target: d.Source}
}

func (d MessageDirection) String() string {
	return fmt.Sprintf("%s_TO_%s", d.Source, d.Target)
}

// ParseMessageDirection accepts the persisted "SOURCE_TO_TARGET" form.
func ParseMessageDirection(s string) (MessageDirection, error) {
	switch s {
	case DirectionGatewayToBackend.String():
		return DirectionGatewayToBackend, nil
	case DirectionBackendToGateway.String():
		return DirectionBackendToGateway, nil
	default:
		return MessageDirection{}, fmt.Errorf("invalid message direction %q", s)
	}
}
