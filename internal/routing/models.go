package routing

import "time"

// ConfigurationSource tells where a rule was defined. Environment rules come
// from the static service configuration and survive database outages;
// database rules are managed at runtime through the management API.
type ConfigurationSource string

const (
	SourceDatabase    ConfigurationSource = "DB"
	SourceEnvironment ConfigurationSource = "ENV"
)

// Rule maps messages matching its clause to a backend link. Lower priority
// values win; ties keep definition order.
type Rule struct {
	ID          string
	DomainID    string
	Description string
	Source      ConfigurationSource
	LinkName    string
	Priority    int
	MatchClause string
	Compiled    Expression
	Enabled     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Matches evaluates the compiled clause against the given attributes. A rule
// without a compiled expression never matches.
func (r Rule) Matches(attrs map[Attribute]string) bool {
	return r.Compiled != nil && r.Compiled.Evaluate(attrs)
}
