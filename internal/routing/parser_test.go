package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/pkg/models"
)

func TestParseValidExpressions(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"simple equals", "equals(ServiceName,'EPO')"},
		{"simple startswith", "startswith(FinalRecipient,'court-')"},
		{"negation", "not(equals(Action,'Form_A'))"},
		{"binary and", "&(equals(ServiceName,'EPO'),equals(Action,'Form_A'))"},
		{"binary or", "|(equals(ToPartyId,'AT'),equals(ToPartyId,'DE'))"},
		{"n-ary and", "&(equals(ServiceName,'EPO'),equals(Action,'Form_A'),equals(ToPartyRole,'RESPONDER'))"},
		{"nested", "&(|(equals(ToPartyId,'AT'),equals(ToPartyId,'DE')),not(startswith(OriginalSender,'test')))"},
		{"whitespace tolerated", " equals( ServiceName , 'EPO' ) "},
		{"empty literal", "equals(ServiceType,'')"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			assert.True(t, result.OK(), "diagnostics: %v", result.Diagnostics)
			assert.NotNil(t, result.Expression)
			assert.Empty(t, result.Diagnostics)
		})
	}
}

func TestParseInvalidExpressions(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		wantDiagnostics int
	}{
		{"empty input", "", 1},
		{"unknown attribute", "equals(ServiceNam,'EPO')", 1},
		{"unknown operator", "equal(ServiceName,'EPO')", 1},
		{"missing literal quote", "equals(ServiceName,EPO)", 1},
		{"unterminated literal", "equals(ServiceName,'EPO", 1},
		{"missing closing paren", "equals(ServiceName,'EPO'", 1},
		{"trailing garbage", "equals(ServiceName,'EPO'))", 1},
		{"single operand conjunction", "&(equals(ServiceName,'EPO'))", 1},
		{"two bad operands give two diagnostics", "&(equals(ServiceNam,'EPO'),equals(Actio,'Form_A'))", 2},
		{"bad operand and trailing garbage", "|(equals(ServiceNam,'EPO'),equals(Action,'Form_A')) xx", 2},
		{"stray character", "equals(ServiceName;'EPO')", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			assert.False(t, result.OK())
			assert.Nil(t, result.Expression)
			assert.Len(t, result.Diagnostics, tt.wantDiagnostics, "diagnostics: %v", result.Diagnostics)
		})
	}
}

func TestParseNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"(((((",
		")))))",
		"&,|,not",
		"''''''",
		"equals equals equals",
		"&(,,,)",
		"not()",
		"not(not(not()))",
		"\x00\xff",
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			result := Parse(input)
			assert.False(t, result.OK())
			assert.NotEmpty(t, result.Diagnostics, "input %q", input)
		})
	}
}

func TestDiagnosticsOrderedByPosition(t *testing.T) {
	result := Parse("&(equals(Bogus1,'a'),equals(Bogus2,'b'))")
	require.Len(t, result.Diagnostics, 2)
	assert.Less(t, result.Diagnostics[0].Position, result.Diagnostics[1].Position)
	assert.Equal(t, "Bogus1", result.Diagnostics[0].Token)
	assert.Equal(t, "Bogus2", result.Diagnostics[1].Token)
}

func TestExpressionRoundTrip(t *testing.T) {
	// The canonical String form must parse back to an equivalent expression.
	inputs := []string{
		"equals(ServiceName,'EPO')",
		"startswith(OriginalSender,'urn:')",
		"not(equals(Action,'Form_A'))",
		"&(equals(ServiceName,'EPO'),|(equals(ToPartyId,'AT'),equals(ToPartyId,'DE')))",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first := Parse(input)
			require.True(t, first.OK())

			second := Parse(first.Expression.String())
			require.True(t, second.OK())
			assert.Equal(t, first.Expression.String(), second.Expression.String())
		})
	}
}

func TestEvaluate(t *testing.T) {
	attrs := map[Attribute]string{
		AttributeServiceName:    "EPO",
		AttributeAction:         "Form_A",
		AttributeToPartyID:      "AT",
		AttributeOriginalSender: "urn:sender:court-vienna",
	}

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"equals match", "equals(ServiceName,'EPO')", true},
		{"equals mismatch", "equals(ServiceName,'EPO2')", false},
		{"equals is case sensitive", "equals(ServiceName,'epo')", false},
		{"startswith match", "startswith(OriginalSender,'urn:sender:')", true},
		{"startswith mismatch", "startswith(OriginalSender,'urn:other:')", false},
		{"missing attribute is false", "equals(FinalRecipient,'anyone')", false},
		{"missing attribute under not is true", "not(equals(FinalRecipient,'anyone'))", true},
		{"and all true", "&(equals(ServiceName,'EPO'),equals(Action,'Form_A'))", true},
		{"and one false", "&(equals(ServiceName,'EPO'),equals(Action,'Form_B'))", false},
		{"or one true", "|(equals(ToPartyId,'DE'),equals(ToPartyId,'AT'))", true},
		{"or all false", "|(equals(ToPartyId,'DE'),equals(ToPartyId,'FR'))", false},
		{"n-ary and", "&(equals(ServiceName,'EPO'),equals(Action,'Form_A'),equals(ToPartyId,'AT'))", true},
		{"nested", "&(not(equals(ToPartyId,'DE')),|(equals(Action,'Form_A'),equals(Action,'Form_B')))", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			require.True(t, result.OK(), "diagnostics: %v", result.Diagnostics)
			assert.Equal(t, tt.want, result.Expression.Evaluate(attrs))
		})
	}
}

func TestMessageAttributes(t *testing.T) {
	details := models.MessageDetails{
		Service:        models.Service{Name: "EPO", Type: "urn:e-codex:services"},
		Action:         "Form_A",
		FromParty:      models.Party{PartyID: "DE", PartyIDType: "iso3166", Role: "GW"},
		ToParty:        models.Party{PartyID: "AT", Role: "BACKEND"},
		OriginalSender: "sender@example.eu",
	}

	attrs := MessageAttributes(details)

	assert.Equal(t, "EPO", attrs[AttributeServiceName])
	assert.Equal(t, "Form_A", attrs[AttributeAction])
	assert.Equal(t, "DE", attrs[AttributeFromPartyID])
	assert.Equal(t, "AT", attrs[AttributeToPartyID])
	assert.Equal(t, "BACKEND", attrs[AttributeToPartyRole])

	_, hasRecipient := attrs[AttributeFinalRecipient]
	assert.False(t, hasRecipient, "empty properties must be absent, not empty strings")
	_, hasIDType := attrs[AttributeToPartyIDType]
	assert.False(t, hasIDType)
}
