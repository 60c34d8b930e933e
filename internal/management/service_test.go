package management

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/evidence"
	pkgerrors "courier/pkg/errors"
	"courier/pkg/models"
)

type memoryRepository struct {
	mu       sync.Mutex
	rules    map[string]*RoutingRule
	settings map[string]*DomainSettings
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		rules:    make(map[string]*RoutingRule),
		settings: make(map[string]*DomainSettings),
	}
}

func (r *memoryRepository) CreateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if _, ok := r.rules[rule.ID]; ok {
		return pkgerrors.ErrConflict.WithDetail("message", "rule already exists")
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *memoryRepository) ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RoutingRule
	for _, rule := range r.rules {
		if rule.DomainID == domainID {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (r *memoryRepository) GetRoutingRule(ctx context.Context, domainID, id string) (*RoutingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok || rule.DomainID != domainID {
		return nil, fmt.Errorf("routing rule not found")
	}
	cp := *rule
	return &cp, nil
}

func (r *memoryRepository) UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[rule.ID]; !ok {
		return fmt.Errorf("routing rule not found")
	}
	cp := *rule
	r.rules[rule.ID] = &cp
	return nil
}

func (r *memoryRepository) DeleteRoutingRule(ctx context.Context, domainID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[id]
	if !ok || rule.DomainID != domainID {
		return fmt.Errorf("routing rule not found")
	}
	delete(r.rules, id)
	return nil
}

func (r *memoryRepository) GetDomainSettings(ctx context.Context, domainID string) (*DomainSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings, ok := r.settings[domainID]
	if !ok {
		return nil, fmt.Errorf("domain settings not found")
	}
	cp := *settings
	return &cp, nil
}

func (r *memoryRepository) UpsertDefaultLink(ctx context.Context, domainID, defaultLink string) (*DomainSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings := &DomainSettings{DomainID: domainID, DefaultLink: defaultLink, UpdatedAt: time.Now()}
	r.settings[domainID] = settings
	cp := *settings
	return &cp, nil
}

type memoryVersioning struct {
	mu       sync.Mutex
	versions []RuleVersion
	audits   []AuditLog
}

func (v *memoryVersioning) CreateVersion(ctx context.Context, version *RuleVersion) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.versions = append(v.versions, *version)
	return nil
}

func (v *memoryVersioning) GetVersions(ctx context.Context, ruleID string) ([]RuleVersion, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []RuleVersion
	for _, ver := range v.versions {
		if ver.RuleID == ruleID {
			out = append(out, ver)
		}
	}
	return out, nil
}

func (v *memoryVersioning) GetVersion(ctx context.Context, ruleID string, version int) (*RuleVersion, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ver := range v.versions {
		if ver.RuleID == ruleID && ver.Version == version {
			cp := ver
			return &cp, nil
		}
	}
	return nil, nil
}

func (v *memoryVersioning) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.audits = append(v.audits, *log)
	return nil
}

func (v *memoryVersioning) GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []AuditLog
	for _, log := range v.audits {
		if ruleID != nil && (log.RuleID == nil || *log.RuleID != *ruleID) {
			continue
		}
		if ruleType != "" && log.RuleType != ruleType {
			continue
		}
		out = append(out, log)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (v *memoryVersioning) GetNextVersion(ctx context.Context, ruleID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	next := 1
	for _, ver := range v.versions {
		if ver.RuleID == ruleID && ver.Version >= next {
			next = ver.Version + 1
		}
	}
	return next, nil
}

type recordingEventProducer struct {
	mu     sync.Mutex
	events []models.ConfigUpdateEvent
}

func (p *recordingEventProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	return nil
}

func (p *recordingEventProducer) PublishEvent(ctx context.Context, topic string, event models.ConfigUpdateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingEventProducer) Close() error { return nil }

func newTestService(t *testing.T) (Service, *memoryRepository, *memoryVersioning, *recordingEventProducer) {
	t.Helper()
	repo := newMemoryRepository()
	versioning := &memoryVersioning{}
	producer := &recordingEventProducer{}
	svc := NewService(repo,
		WithVersioning(versioning),
		WithConfigEvents(NewConfigEventProducer(producer, "config-updates")),
	)
	return svc, repo, versioning, producer
}

func TestServiceCreateRoutingRule(t *testing.T) {
	svc, _, versioning, producer := newTestService(t)

	rule, err := svc.CreateRoutingRule(context.Background(), "domain-a", CreateRoutingRuleRequest{
		Description: "electronic payment orders",
		MatchClause: "equals(ServiceName, 'EPO_SERVICE')",
		LinkName:    "epo_backend",
		Priority:    10,
	})
	require.NoError(t, err)
	require.NotNil(t, rule)

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "domain-a", rule.DomainID)
	assert.True(t, rule.Enabled, "rules default to enabled")

	require.Len(t, versioning.versions, 1)
	assert.Equal(t, "routing", versioning.versions[0].RuleType)
	assert.Equal(t, 1, versioning.versions[0].Version)
	require.Len(t, versioning.audits, 1)
	assert.Equal(t, "create", versioning.audits[0].Action)

	require.Len(t, producer.events, 1)
	assert.Equal(t, models.EventTypeRoutingRuleUpdated, producer.events[0].EventType)
	assert.Equal(t, models.ServiceTypeRouting, producer.events[0].ServiceType)
	assert.Equal(t, "domain-a", producer.events[0].DomainID)
	assert.Equal(t, rule.ID, producer.events[0].RuleID)
	assert.Equal(t, models.ActionCreate, producer.events[0].Action)
}

func TestServiceCreateRoutingRuleBadClause(t *testing.T) {
	svc, _, _, producer := newTestService(t)

	tests := []struct {
		name        string
		clause      string
		diagnostics int
	}{
		{
			name:        "unknown function",
			clause:      "matches(ServiceName, 'EPO')",
			diagnostics: 1,
		},
		{
			name:        "two problems reported together",
			clause:      "&(equals(ServiceName 'EPO'))",
			diagnostics: 2,
		},
		{
			name:        "unbalanced parens",
			clause:      "equals(ServiceName, 'EPO'",
			diagnostics: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateRoutingRule(context.Background(), "domain-a", CreateRoutingRuleRequest{
				MatchClause: tt.clause,
				LinkName:    "epo_backend",
			})
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))

			response := pkgerrors.ToErrorResponse(err)
			details, ok := response["details"].(map[string]interface{})
			require.True(t, ok)
			diags, ok := details["diagnostics"].([]RuleDiagnostic)
			require.True(t, ok)
			assert.GreaterOrEqual(t, len(diags), tt.diagnostics)
		})
	}

	assert.Empty(t, producer.events, "rejected rules publish no events")
}

func TestServiceUpdateRoutingRule(t *testing.T) {
	svc, _, versioning, producer := newTestService(t)

	rule, err := svc.CreateRoutingRule(context.Background(), "domain-a", CreateRoutingRuleRequest{
		MatchClause: "equals(ServiceName, 'EPO_SERVICE')",
		LinkName:    "epo_backend",
		Priority:    10,
	})
	require.NoError(t, err)

	newPriority := 5
	disabled := false
	updated, err := svc.UpdateRoutingRule(context.Background(), "domain-a", rule.ID, UpdateRoutingRuleRequest{
		Priority: &newPriority,
		Enabled:  &disabled,
	})
	require.NoError(t, err)

	assert.Equal(t, 5, updated.Priority)
	assert.False(t, updated.Enabled)
	assert.Equal(t, rule.MatchClause, updated.MatchClause, "unset fields stay untouched")

	require.Len(t, versioning.versions, 2)
	assert.Equal(t, 2, versioning.versions[1].Version)
	require.Len(t, producer.events, 2)
	assert.Equal(t, models.ActionUpdate, producer.events[1].Action)
}

func TestServiceUpdateRoutingRuleNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	priority := 1
	_, err := svc.UpdateRoutingRule(context.Background(), "domain-a", "missing", UpdateRoutingRuleRequest{
		Priority: &priority,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestServiceDeleteRoutingRule(t *testing.T) {
	svc, repo, versioning, producer := newTestService(t)

	rule, err := svc.CreateRoutingRule(context.Background(), "domain-a", CreateRoutingRuleRequest{
		MatchClause: "equals(ServiceName, 'EPO_SERVICE')",
		LinkName:    "epo_backend",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoutingRule(context.Background(), "domain-a", rule.ID))
	assert.Empty(t, repo.rules)

	require.Len(t, versioning.audits, 2)
	assert.Equal(t, "delete", versioning.audits[1].Action)
	require.Len(t, producer.events, 2)
	assert.Equal(t, models.ActionDelete, producer.events[1].Action)

	err = svc.DeleteRoutingRule(context.Background(), "domain-a", rule.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestServiceRuleScopedToDomain(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	rule, err := svc.CreateRoutingRule(context.Background(), "domain-a", CreateRoutingRuleRequest{
		MatchClause: "equals(ServiceName, 'EPO_SERVICE')",
		LinkName:    "epo_backend",
	})
	require.NoError(t, err)

	_, err = svc.GetRoutingRule(context.Background(), "domain-b", rule.ID)
	assert.True(t, pkgerrors.IsNotFound(err), "rules are not visible from other domains")
}

func TestServiceDefaultLink(t *testing.T) {
	svc, _, _, producer := newTestService(t)

	_, err := svc.GetDefaultLink(context.Background(), "domain-a")
	assert.True(t, pkgerrors.IsNotFound(err))

	settings, err := svc.SetDefaultLink(context.Background(), "domain-a", UpdateDefaultLinkRequest{DefaultLink: "catchall_backend"})
	require.NoError(t, err)
	assert.Equal(t, "catchall_backend", settings.DefaultLink)

	got, err := svc.GetDefaultLink(context.Background(), "domain-a")
	require.NoError(t, err)
	assert.Equal(t, "catchall_backend", got.DefaultLink)

	require.Len(t, producer.events, 1)
	assert.Equal(t, models.EventTypeDomainConfigUpdated, producer.events[0].EventType)
	assert.Equal(t, "catchall_backend", producer.events[0].Metadata["default_link"])
}

type stubMessageStore struct {
	evidence.Store
	msg *evidence.StoredMessage
}

func (s *stubMessageStore) FindByConnectorID(ctx context.Context, domainID, connectorMessageID string) (*evidence.StoredMessage, error) {
	if s.msg == nil || s.msg.DomainID != domainID || s.msg.ConnectorMessageID != connectorMessageID {
		return nil, evidence.ErrMessageNotFound
	}
	cp := *s.msg
	return &cp, nil
}

type stubArchive struct {
	docs []evidence.ArchivedEvidence
}

func (a *stubArchive) Store(ctx context.Context, doc evidence.ArchivedEvidence) error {
	a.docs = append(a.docs, doc)
	return nil
}

func (a *stubArchive) FindByConnectorID(ctx context.Context, connectorMessageID string) ([]evidence.ArchivedEvidence, error) {
	var out []evidence.ArchivedEvidence
	for _, doc := range a.docs {
		if doc.ConnectorMessageID == connectorMessageID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func TestServiceGetMessageStatus(t *testing.T) {
	confirmedAt := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	archivedAt := confirmedAt.Add(-time.Minute)

	store := &stubMessageStore{msg: &evidence.StoredMessage{
		ConnectorMessageID: "msg-1",
		DomainID:           "domain-a",
		Details: models.MessageDetails{
			Direction:      models.DirectionBackendToGateway,
			BackendLink:    "epo_backend",
			ConversationID: "conv-1",
		},
		Confirmations: []models.MessageConfirmation{
			{Type: models.EvidenceSubmissionAcceptance},
			{Type: models.EvidenceDelivery},
		},
		ConfirmedAt: &confirmedAt,
		CreatedAt:   confirmedAt.Add(-time.Hour),
	}}
	archive := &stubArchive{docs: []evidence.ArchivedEvidence{
		{ConnectorMessageID: "msg-1", DomainID: "domain-a", EvidenceType: models.EvidenceSubmissionAcceptance, Generated: true, ArchivedAt: archivedAt},
	}}

	svc := NewService(newMemoryRepository(), WithMessageLookups(store, archive, nil))

	status, err := svc.GetMessageStatus(context.Background(), "domain-a", "msg-1")
	require.NoError(t, err)

	assert.Equal(t, "msg-1", status.ConnectorMessageID)
	assert.True(t, status.Confirmed)
	assert.False(t, status.Rejected)
	require.Len(t, status.Evidences, 2)

	acceptance := status.Evidences[0]
	assert.Equal(t, models.EvidenceSubmissionAcceptance, acceptance.Type)
	assert.True(t, acceptance.Positive)
	assert.True(t, acceptance.Generated)
	require.NotNil(t, acceptance.ReceivedAt)
	assert.Equal(t, archivedAt, *acceptance.ReceivedAt)

	delivery := status.Evidences[1]
	assert.Equal(t, models.EvidenceDelivery, delivery.Type)
	assert.False(t, delivery.Generated)
	assert.Nil(t, delivery.ReceivedAt, "no archive entry for this evidence")

	_, err = svc.GetMessageStatus(context.Background(), "domain-a", "missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestServiceGetMessageEvidences(t *testing.T) {
	archive := &stubArchive{docs: []evidence.ArchivedEvidence{
		{ConnectorMessageID: "msg-1", DomainID: "domain-a", EvidenceType: models.EvidenceDelivery, Evidence: []byte("<evidence/>")},
		{ConnectorMessageID: "msg-1", DomainID: "domain-b", EvidenceType: models.EvidenceDelivery},
	}}
	svc := NewService(newMemoryRepository(), WithMessageLookups(&stubMessageStore{}, archive, nil))

	views, err := svc.GetMessageEvidences(context.Background(), "domain-a", "msg-1")
	require.NoError(t, err)
	require.Len(t, views, 1, "other domains' documents filtered out")
	assert.Equal(t, models.EvidenceDelivery, views[0].EvidenceType)
	assert.Equal(t, []byte("<evidence/>"), views[0].Evidence)
}
