package management

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"courier/internal/constants"
	"courier/internal/evidence"
	"courier/internal/processing"
	pkgerrors "courier/pkg/errors"
	"courier/pkg/models"
)

type service struct {
	repo                Repository
	versioningRepo      VersioningRepository
	configEventProducer *ConfigEventProducer
	messageStore        evidence.Store
	archive             evidence.Archive
	errorStore          processing.ErrorStore
	auditEnabled        bool
}

type ServiceOption func(*service)

func WithVersioning(versioningRepo VersioningRepository) ServiceOption {
	return func(s *service) {
		s.versioningRepo = versioningRepo
		s.auditEnabled = true
	}
}

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

// WithMessageLookups enables the message status and evidence endpoints. The
// archive and error store may be nil; the status view then simply omits
// those sections.
func WithMessageLookups(store evidence.Store, archive evidence.Archive, errorStore processing.ErrorStore) ServiceOption {
	return func(s *service) {
		s.messageStore = store
		s.archive = archive
		s.errorStore = errorStore
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:         repo,
		auditEnabled: false,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.versioningRepo != nil {
		s.auditEnabled = true
	}

	return s
}

func (s *service) CreateRoutingRule(ctx context.Context, domainID string, req CreateRoutingRuleRequest) (*RoutingRule, error) {
	if domainID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "domain id is required")
	}
	if err := ValidateRoutingRule(req); err != nil {
		return nil, err
	}

	rule := &RoutingRule{
		DomainID:    domainID,
		Description: req.Description,
		MatchClause: req.MatchClause,
		LinkName:    req.LinkName,
		Priority:    req.Priority,
		Enabled:     getEnabledValue(req.Enabled),
	}

	if err := s.repo.CreateRoutingRule(ctx, rule); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "create", nil)
	s.publishConfigEvent(ctx, models.ActionCreate, rule.DomainID, rule.ID)

	return s.copyRoutingRule(rule), nil
}

func (s *service) ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRule, error) {
	rules, err := s.repo.ListRoutingRules(ctx, domainID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	out := make([]RoutingRule, len(rules))
	copy(out, rules)
	return out, nil
}

func (s *service) GetRoutingRule(ctx context.Context, domainID, id string) (*RoutingRule, error) {
	rule, err := s.repo.GetRoutingRule(ctx, domainID, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return s.copyRoutingRule(rule), nil
}

func (s *service) UpdateRoutingRule(ctx context.Context, domainID, id string, req UpdateRoutingRuleRequest) (*RoutingRule, error) {
	if err := ValidateUpdateRoutingRule(req); err != nil {
		return nil, err
	}

	rule, err := s.repo.GetRoutingRule(ctx, domainID, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.ruleToMap(rule)
	s.updateRoutingRuleFields(rule, req)

	if err := s.repo.UpdateRoutingRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "update", oldValue)
	s.publishConfigEvent(ctx, models.ActionUpdate, rule.DomainID, rule.ID)

	return s.copyRoutingRule(rule), nil
}

func (s *service) DeleteRoutingRule(ctx context.Context, domainID, id string) error {
	rule, err := s.repo.GetRoutingRule(ctx, domainID, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.ruleToMap(rule)

	if err := s.repo.DeleteRoutingRule(ctx, domainID, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.auditEnabled && s.versioningRepo != nil {
		auditLog := s.buildAuditLog(id, "routing", "delete", oldValue, nil, getChangedBy(ctx))
		_ = s.versioningRepo.CreateAuditLog(ctx, auditLog)
	}

	s.publishConfigEvent(ctx, models.ActionDelete, domainID, id)
	return nil
}

func (s *service) GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "versioning not enabled")
	}
	versions, err := s.versioningRepo.GetVersions(ctx, ruleID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return versions, nil
}

func (s *service) GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	logs, err := s.versioningRepo.GetAuditLogs(ctx, ruleID, ruleType, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return logs, nil
}

func (s *service) GetDefaultLink(ctx context.Context, domainID string) (*DomainSettings, error) {
	settings, err := s.repo.GetDomainSettings(ctx, domainID)
	if err != nil {
		return nil, s.handleNotFoundError(err, domainID)
	}
	if settings == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("domain_id", domainID)
	}
	return settings, nil
}

func (s *service) SetDefaultLink(ctx context.Context, domainID string, req UpdateDefaultLinkRequest) (*DomainSettings, error) {
	if domainID == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "domain id is required")
	}
	if err := ValidateDefaultLink(req); err != nil {
		return nil, err
	}

	settings, err := s.repo.UpsertDefaultLink(ctx, domainID, req.DefaultLink)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.configEventProducer != nil {
		metadata := map[string]interface{}{"default_link": req.DefaultLink}
		_ = s.configEventProducer.PublishDomainConfigEvent(ctx, models.ActionUpdate, domainID, getChangedBy(ctx), metadata)
	}

	return settings, nil
}

func (s *service) GetMessageStatus(ctx context.Context, domainID, connectorMessageID string) (*MessageStatus, error) {
	if s.messageStore == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "message lookups not enabled")
	}

	msg, err := s.messageStore.FindByConnectorID(ctx, domainID, connectorMessageID)
	if err != nil {
		if errors.Is(err, evidence.ErrMessageNotFound) {
			return nil, pkgerrors.ErrNotFound.WithDetail("connector_message_id", connectorMessageID)
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	status := &MessageStatus{
		ConnectorMessageID: msg.ConnectorMessageID,
		DomainID:           msg.DomainID,
		Direction:          msg.Details.Direction.String(),
		BackendLink:        msg.Details.BackendLink,
		ConversationID:     msg.Details.ConversationID,
		Confirmed:          msg.IsConfirmed(),
		Rejected:           msg.IsRejected(),
		ConfirmedAt:        msg.ConfirmedAt,
		RejectedAt:         msg.RejectedAt,
		CreatedAt:          msg.CreatedAt,
		Evidences:          make([]MessageEvidenceSummary, 0, len(msg.Confirmations)),
	}

	archived := s.archivedByType(ctx, connectorMessageID)
	for _, conf := range msg.Confirmations {
		summary := MessageEvidenceSummary{
			Type:     conf.Type,
			Positive: conf.Type.IsPositive(),
			Reason:   conf.Reason,
		}
		if docs := archived[conf.Type]; len(docs) > 0 {
			doc := docs[0]
			archived[conf.Type] = docs[1:]
			summary.Generated = doc.Generated
			at := doc.ArchivedAt
			summary.ReceivedAt = &at
		}
		status.Evidences = append(status.Evidences, summary)
	}

	if s.errorStore != nil {
		perrs, err := s.errorStore.FindByConnectorID(ctx, domainID, connectorMessageID)
		if err == nil {
			for _, perr := range perrs {
				status.ProcessingErrors = append(status.ProcessingErrors, ProcessingErrorView{
					ErrorCode:  string(perr.ErrorCode),
					ErrorText:  perr.ErrorText,
					Topic:      perr.Topic,
					OccurredAt: perr.OccurredAt,
				})
			}
		}
	}

	return status, nil
}

func (s *service) GetMessageEvidences(ctx context.Context, domainID, connectorMessageID string) ([]ArchivedEvidenceView, error) {
	if s.archive == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "evidence archive not enabled")
	}

	docs, err := s.archive.FindByConnectorID(ctx, connectorMessageID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	views := make([]ArchivedEvidenceView, 0, len(docs))
	for _, doc := range docs {
		if doc.DomainID != domainID {
			continue
		}
		views = append(views, ArchivedEvidenceView{
			EvidenceType: doc.EvidenceType,
			Evidence:     doc.Evidence,
			Generated:    doc.Generated,
			ArchivedAt:   doc.ArchivedAt,
		})
	}
	return views, nil
}

// archivedByType groups the archive documents of a message per evidence type
// in archival order, so repeated evidences pair up with their confirmations.
func (s *service) archivedByType(ctx context.Context, connectorMessageID string) map[models.EvidenceType][]evidence.ArchivedEvidence {
	grouped := make(map[models.EvidenceType][]evidence.ArchivedEvidence)
	if s.archive == nil {
		return grouped
	}
	docs, err := s.archive.FindByConnectorID(ctx, connectorMessageID)
	if err != nil {
		return grouped
	}
	for _, doc := range docs {
		grouped[doc.EvidenceType] = append(grouped[doc.EvidenceType], doc)
	}
	return grouped
}

func (s *service) handleNotFoundError(err error, id string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not found") {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func (s *service) createVersionAndAudit(ctx context.Context, rule *RoutingRule, action string, oldValue map[string]interface{}) {
	if !s.auditEnabled || s.versioningRepo == nil {
		return
	}

	ruleJSON, err := ruleToJSON(rule)
	if err != nil {
		return
	}

	version := s.buildVersion(ctx, rule, ruleJSON)
	if err := s.versioningRepo.CreateVersion(ctx, version); err != nil {
		return
	}

	newValue, err := s.ruleToMap(rule)
	if err != nil {
		return
	}

	auditLog := s.buildAuditLog(rule.ID, "routing", action, oldValue, newValue, getChangedBy(ctx))
	_ = s.versioningRepo.CreateAuditLog(ctx, auditLog)
}

func (s *service) buildVersion(ctx context.Context, rule *RoutingRule, ruleJSON string) *RuleVersion {
	version := 1
	if s.versioningRepo != nil {
		if nextVersion, err := s.versioningRepo.GetNextVersion(ctx, rule.ID); err == nil {
			version = nextVersion
		}
	}

	return &RuleVersion{
		RuleID:    rule.ID,
		RuleType:  "routing",
		RuleData:  ruleJSON,
		Version:   version,
		ChangedBy: getChangedBy(ctx),
	}
}

func (s *service) buildAuditLog(ruleID, ruleType, action string, oldValue, newValue map[string]interface{}, changedBy string) *AuditLog {
	return &AuditLog{
		RuleID:    &ruleID,
		RuleType:  ruleType,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedBy: changedBy,
	}
}

func (s *service) ruleToMap(rule *RoutingRule) (map[string]interface{}, error) {
	ruleData, err := json.Marshal(rule)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(ruleData, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) publishConfigEvent(ctx context.Context, action, domainID, ruleID string) {
	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishRoutingRuleEvent(ctx, action, domainID, ruleID, getChangedBy(ctx))
	}
}

func (s *service) updateRoutingRuleFields(rule *RoutingRule, req UpdateRoutingRuleRequest) {
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.MatchClause != nil {
		rule.MatchClause = *req.MatchClause
	}
	if req.LinkName != nil {
		rule.LinkName = *req.LinkName
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
}

func (s *service) copyRoutingRule(rule *RoutingRule) *RoutingRule {
	out := *rule
	return &out
}

func getEnabledValue(reqEnabled *bool) bool {
	if reqEnabled == nil {
		return true
	}
	return *reqEnabled
}

func getChangedBy(ctx context.Context) string {
	if userID := ctx.Value("user_id"); userID != nil {
		if id, ok := userID.(string); ok {
			return id
		}
	}
	return "system"
}
