package routing

import (
	"fmt"
	"strings"

	"courier/pkg/models"
)

// Attribute is one of the message properties a match clause may test. The
// set is closed; the parser rejects anything else.
type Attribute string

const (
	AttributeServiceName     Attribute = "ServiceName"
	AttributeServiceType     Attribute = "ServiceType"
	AttributeAction          Attribute = "Action"
	AttributeFromPartyID     Attribute = "FromPartyId"
	AttributeFromPartyIDType Attribute = "FromPartyIdType"
	AttributeFromPartyRole   Attribute = "FromPartyRole"
	AttributeToPartyID       Attribute = "ToPartyId"
	AttributeToPartyIDType   Attribute = "ToPartyIdType"
	AttributeToPartyRole     Attribute = "ToPartyRole"
	AttributeOriginalSender  Attribute = "OriginalSender"
	AttributeFinalRecipient  Attribute = "FinalRecipient"
)

var attributeNames = map[string]Attribute{
	string(AttributeServiceName):     AttributeServiceName,
	string(AttributeServiceType):     AttributeServiceType,
	string(AttributeAction):          AttributeAction,
	string(AttributeFromPartyID):     AttributeFromPartyID,
	string(AttributeFromPartyIDType): AttributeFromPartyIDType,
	string(AttributeFromPartyRole):   AttributeFromPartyRole,
	string(AttributeToPartyID):       AttributeToPartyID,
	string(AttributeToPartyIDType):   AttributeToPartyIDType,
	string(AttributeToPartyRole):     AttributeToPartyRole,
	string(AttributeOriginalSender):  AttributeOriginalSender,
	string(AttributeFinalRecipient):  AttributeFinalRecipient,
}

func ParseAttribute(s string) (Attribute, bool) {
	a, ok := attributeNames[s]
	return a, ok
}

// MessageAttributes projects the routable properties of the message details.
// Empty properties are left out: a match clause testing them evaluates to
// false rather than matching the empty string.
func MessageAttributes(details models.MessageDetails) map[Attribute]string {
	attrs := make(map[Attribute]string, len(attributeNames))
	put := func(a Attribute, v string) {
		if v != "" {
			attrs[a] = v
		}
	}
	put(AttributeServiceName, details.Service.Name)
	put(AttributeServiceType, details.Service.Type)
	put(AttributeAction, details.Action)
	put(AttributeFromPartyID, details.FromParty.PartyID)
	put(AttributeFromPartyIDType, details.FromParty.PartyIDType)
	put(AttributeFromPartyRole, details.FromParty.Role)
	put(AttributeToPartyID, details.ToParty.PartyID)
	put(AttributeToPartyIDType, details.ToParty.PartyIDType)
	put(AttributeToPartyRole, details.ToParty.Role)
	put(AttributeOriginalSender, details.OriginalSender)
	put(AttributeFinalRecipient, details.FinalRecipient)
	return attrs
}

// Expression is a compiled match clause. Evaluation is pure and total: it
// never fails, an absent attribute simply does not match.
type Expression interface {
	Evaluate(attrs map[Attribute]string) bool
	String() string
}

type matchOp int

const (
	opEquals matchOp = iota
	opStartsWith
)

type matchExpression struct {
	op        matchOp
	attribute Attribute
	value     string
}

func (e *matchExpression) Evaluate(attrs map[Attribute]string) bool {
	actual, ok := attrs[e.attribute]
	if !ok {
		return false
	}
	switch e.op {
	case opStartsWith:
		return strings.HasPrefix(actual, e.value)
	default:
		return actual == e.value
	}
}

func (e *matchExpression) String() string {
	name := "equals"
	if e.op == opStartsWith {
		name = "startswith"
	}
	return fmt.Sprintf("%s(%s,'%s')", name, e.attribute, e.value)
}

type notExpression struct {
	operand Expression
}

func (e *notExpression) Evaluate(attrs map[Attribute]string) bool {
	return !e.operand.Evaluate(attrs)
}

func (e *notExpression) String() string {
	return fmt.Sprintf("not(%s)", e.operand)
}

type booleanOp int

const (
	opAnd booleanOp = iota
	opOr
)

// booleanExpression is an n-ary conjunction or disjunction; the grammar
// requires at least two operands.
type booleanExpression struct {
	op       booleanOp
	operands []Expression
}

func (e *booleanExpression) Evaluate(attrs map[Attribute]string) bool {
	for _, operand := range e.operands {
		result := operand.Evaluate(attrs)
		if e.op == opAnd && !result {
			return false
		}
		if e.op == opOr && result {
			return true
		}
	}
	return e.op == opAnd
}

func (e *booleanExpression) String() string {
	parts := make([]string, len(e.operands))
	for i, operand := range e.operands {
		parts[i] = operand.String()
	}
	symbol := "&"
	if e.op == opOr {
		symbol = "|"
	}
	return fmt.Sprintf("%s(%s)", symbol, strings.Join(parts, ","))
}
