package routing

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"courier/internal/config"
	"courier/internal/logger"
	"courier/pkg/metrics"
	"courier/pkg/models"
	"courier/pkg/tracing"
)

// ErrNoMatch is returned when no routing rule matched; the caller decides
// whether a default link applies.
var ErrNoMatch = errors.New("no routing rule matched")

// ErrNoLink is returned when no rule matched and no default link is
// configured for the domain.
var ErrNoLink = errors.New("no backend link could be resolved")

// Service holds the per-domain routing rule sets and answers routing
// decisions against consistent snapshots. Database rules are merged over the
// static rules from the service configuration.
type Service struct {
	repo          Repository
	routingConfig config.RoutingConfig
	logger        logger.Logger

	mu           sync.RWMutex
	rules        map[string][]Rule
	defaultLinks map[string]string

	staticRules map[string][]Rule
}

func NewService(repo Repository, cfg config.RoutingConfig, log logger.Logger) (*Service, error) {
	static, err := compileStaticRules(cfg.StaticRules)
	if err != nil {
		return nil, err
	}

	s := &Service{
		repo:          repo,
		routingConfig: cfg,
		logger:        log,
		rules:         make(map[string][]Rule, len(static)),
		defaultLinks:  make(map[string]string),
		staticRules:   static,
	}

	// Static rules answer routing until the first successful reload.
	for domainID, rules := range static {
		s.rules[domainID] = sortRules(rules)
	}
	return s, nil
}

// compileStaticRules turns the configured rules into compiled ones. A broken
// clause in the static configuration is a deployment error and fails startup
// with every diagnostic listed.
func compileStaticRules(cfgRules []config.StaticRuleConfig) (map[string][]Rule, error) {
	static := make(map[string][]Rule)
	for _, rc := range cfgRules {
		result := Parse(rc.MatchClause)
		if !result.OK() {
			return nil, fmt.Errorf("static routing rule %q is invalid: %v", rc.RuleID, result.Diagnostics)
		}
		static[rc.DomainID] = append(static[rc.DomainID], Rule{
			ID:          rc.RuleID,
			DomainID:    rc.DomainID,
			Description: rc.Description,
			Source:      SourceEnvironment,
			LinkName:    rc.LinkName,
			Priority:    rc.Priority,
			MatchClause: rc.MatchClause,
			Compiled:    result.Expression,
			Enabled:     true,
		})
	}
	return static, nil
}

// Match returns the first rule of the domain whose clause matches the
// message details. Rules are checked in priority order (lower value first,
// stable on ties) against one consistent snapshot.
func (s *Service) Match(ctx context.Context, domainID string, details models.MessageDetails) (Rule, error) {
	ctx, span := tracing.GetTracer("connector-service").Start(ctx, "routing.match")
	defer span.End()

	rules := s.getActiveRules(domainID)
	attrs := MessageAttributes(details)

	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return Rule{}, err
		}
		if rule.Matches(attrs) {
			s.logger.DebugwCtx(ctx, "Routing rule matched",
				"domain_id", domainID,
				"rule_id", rule.ID,
				"link_name", rule.LinkName,
			)
			return rule, nil
		}
	}

	return Rule{}, ErrNoMatch
}

// ResolveLink decides the backend link for a message: first matching rule,
// otherwise the domain's default link. ErrNoLink when neither exists.
func (s *Service) ResolveLink(ctx context.Context, domainID string, details models.MessageDetails) (models.RoutingInfo, error) {
	start := time.Now()

	rule, err := s.Match(ctx, domainID, details)
	switch {
	case err == nil:
		s.recordDecision(time.Since(start), "rule_match")
		return models.RoutingInfo{LinkName: rule.LinkName, RuleID: rule.ID, DecidedAt: time.Now()}, nil
	case errors.Is(err, ErrNoMatch):
		if link := s.defaultLink(domainID); link != "" {
			s.recordDecision(time.Since(start), "default_link")
			s.logger.DebugwCtx(ctx, "No routing rule matched, using default link",
				"domain_id", domainID,
				"link_name", link,
			)
			return models.RoutingInfo{LinkName: link, DecidedAt: time.Now()}, nil
		}
		s.recordDecision(time.Since(start), "no_link")
		return models.RoutingInfo{}, fmt.Errorf("domain %s: %w", domainID, ErrNoLink)
	default:
		s.recordDecision(time.Since(start), "error")
		return models.RoutingInfo{}, err
	}
}

func (s *Service) getActiveRules(domainID string) []Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.rules[domainID]
	rules := make([]Rule, len(src))
	copy(rules, src)
	return rules
}

func (s *Service) defaultLink(domainID string) string {
	s.mu.RLock()
	link, ok := s.defaultLinks[domainID]
	s.mu.RUnlock()
	if ok && link != "" {
		return link
	}
	if link, ok := s.routingConfig.DefaultLinks[domainID]; ok && link != "" {
		return link
	}
	return s.routingConfig.DefaultLink
}

// AddRule compiles and inserts a rule into the domain's active set. The rule
// participates in the very next Match call.
func (s *Service) AddRule(ctx context.Context, rule Rule) error {
	if rule.Compiled == nil {
		result := Parse(rule.MatchClause)
		if !result.OK() {
			return fmt.Errorf("routing rule %q is invalid: %v", rule.ID, result.Diagnostics)
		}
		rule.Compiled = result.Expression
	}

	s.mu.Lock()
	s.rules[rule.DomainID] = sortRules(append(s.getDomainRulesLocked(rule.DomainID), rule))
	count := len(s.rules[rule.DomainID])
	s.mu.Unlock()

	metrics.SetRoutingActiveRules(rule.DomainID, count)
	s.logger.InfowCtx(ctx, "Routing rule added",
		"domain_id", rule.DomainID,
		"rule_id", rule.ID,
		"link_name", rule.LinkName,
		"priority", rule.Priority,
	)
	return nil
}

// DeleteRule removes a rule from the domain's active set.
func (s *Service) DeleteRule(ctx context.Context, domainID, ruleID string) bool {
	s.mu.Lock()
	rules := s.getDomainRulesLocked(domainID)
	kept := rules[:0]
	removed := false
	for _, r := range rules {
		if r.ID == ruleID {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	s.rules[domainID] = kept
	count := len(kept)
	s.mu.Unlock()

	if removed {
		metrics.SetRoutingActiveRules(domainID, count)
		s.logger.InfowCtx(ctx, "Routing rule deleted",
			"domain_id", domainID,
			"rule_id", ruleID,
		)
	}
	return removed
}

// getDomainRulesLocked returns a copy; callers hold the write lock.
func (s *Service) getDomainRulesLocked(domainID string) []Rule {
	src := s.rules[domainID]
	rules := make([]Rule, len(src))
	copy(rules, src)
	return rules
}

func sortRules(rules []Rule) []Rule {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
	return rules
}

func (s *Service) recordDecision(duration time.Duration, outcome string) {
	metrics.RoutingDecisionsTotal.WithLabelValues(outcome).Inc()
	metrics.ObserveRoutingMatchDuration(duration, outcome)
}

// ReloadRules replaces every domain's rule set with the database rules
// merged over the static ones, and refreshes the default links.
func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	dbRules, err := s.repo.GetActiveRules(ctx)
	if err != nil {
		return err
	}

	defaultLinks, err := s.repo.GetDefaultLinks(ctx)
	if err != nil {
		return err
	}

	byDomain := make(map[string][]Rule, len(s.staticRules))
	for domainID, rules := range s.staticRules {
		byDomain[domainID] = append([]Rule(nil), rules...)
	}

	for _, rule := range dbRules {
		result := Parse(rule.MatchClause)
		if !result.OK() {
			s.logger.ErrorwCtx(ctx, "Skipping routing rule with invalid match clause",
				"domain_id", rule.DomainID,
				"rule_id", rule.ID,
				"diagnostics", result.Diagnostics,
			)
			continue
		}
		rule.Compiled = result.Expression
		byDomain[rule.DomainID] = append(byDomain[rule.DomainID], rule)
	}

	for domainID := range byDomain {
		byDomain[domainID] = sortRules(byDomain[domainID])
	}

	s.updateRules(ctx, byDomain, defaultLinks)
	return nil
}

func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.routingConfig.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.routingConfig.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) updateRules(ctx context.Context, rules map[string][]Rule, defaultLinks map[string]string) {
	total := 0

	s.mu.Lock()
	s.rules = rules
	s.defaultLinks = defaultLinks
	s.mu.Unlock()

	for domainID, domainRules := range rules {
		metrics.SetRoutingActiveRules(domainID, len(domainRules))
		total += len(domainRules)
	}

	s.logger.InfowCtx(ctx, "Successfully reloaded routing rules",
		"domains", len(rules),
		"rules_count", total,
	)
}

func (s *Service) StartReloader(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.routingConfig.Reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload routing rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload routing rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
