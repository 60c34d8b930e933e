package management

import (
	"courier/internal/routing"
	pkgerrors "courier/pkg/errors"
)

// validateMatchClause parses the clause and turns parse problems into a
// validation error carrying every diagnostic, so a caller can fix the whole
// clause in one round trip.
func validateMatchClause(clause string) error {
	result := routing.Parse(clause)
	if len(result.Diagnostics) == 0 {
		return nil
	}
	return pkgerrors.ErrValidation.
		WithDetail("message", "match_clause does not parse").
		WithDetail("diagnostics", toRuleDiagnostics(result.Diagnostics))
}

func ValidateRoutingRule(req CreateRoutingRuleRequest) error {
	if req.MatchClause == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "match_clause is required")
	}
	if req.LinkName == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "link_name is required")
	}
	if req.Priority < 0 {
		return pkgerrors.ErrValidation.WithDetail("message", "priority must be non-negative")
	}
	return validateMatchClause(req.MatchClause)
}

func ValidateUpdateRoutingRule(req UpdateRoutingRuleRequest) error {
	if req.MatchClause != nil {
		if *req.MatchClause == "" {
			return pkgerrors.ErrValidation.WithDetail("message", "match_clause cannot be empty")
		}
		if err := validateMatchClause(*req.MatchClause); err != nil {
			return err
		}
	}
	if req.LinkName != nil && *req.LinkName == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "link_name cannot be empty")
	}
	if req.Priority != nil && *req.Priority < 0 {
		return pkgerrors.ErrValidation.WithDetail("message", "priority must be non-negative")
	}
	return nil
}

func ValidateDefaultLink(req UpdateDefaultLinkRequest) error {
	if req.DefaultLink == "" {
		return pkgerrors.ErrValidation.WithDetail("message", "default_link is required")
	}
	return nil
}
