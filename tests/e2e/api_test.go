package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/management"
)

const (
	managementServiceURL = "http://localhost:8084"
	e2eDomainID          = "e2e-domain"
)

func TestManagementServiceHealth(t *testing.T) {
	url := fmt.Sprintf("%s/health", managementServiceURL)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.NotNil(t, health["status"])
}

func TestRoutingRulesCRUD(t *testing.T) {
	createReq := management.CreateRoutingRuleRequest{
		Description: "e2e EPO rule",
		MatchClause: "equals(ServiceName, 'EPO')",
		LinkName:    "e2e_backend",
		Priority:    10,
		Enabled:     boolPtr(true),
	}

	ruleID := createRoutingRule(t, createReq)
	defer deleteRoutingRule(t, ruleID)

	rule := getRoutingRule(t, ruleID)
	assert.Equal(t, createReq.MatchClause, rule.MatchClause)
	assert.Equal(t, createReq.LinkName, rule.LinkName)
	assert.Equal(t, createReq.Priority, rule.Priority)
	assert.Equal(t, *createReq.Enabled, rule.Enabled)

	rules := listRoutingRules(t)
	found := false
	for _, r := range rules {
		if r.ID == ruleID {
			found = true
			break
		}
	}
	assert.True(t, found, "created rule should appear in the list")

	newLink := "e2e_backend_v2"
	updated := updateRoutingRule(t, ruleID, management.UpdateRoutingRuleRequest{
		LinkName: &newLink,
	})
	assert.Equal(t, newLink, updated.LinkName)
}

func TestRoutingRuleValidation(t *testing.T) {
	resp := createRoutingRuleWithError(t, management.CreateRoutingRuleRequest{
		MatchClause: "&(equals(ServiceName 'EPO'))",
		LinkName:    "e2e_backend",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	err := json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)
	assert.Equal(t, "VALIDATION_ERROR", body["error_code"])

	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok, "validation response should carry details")
	diagnostics, ok := details["diagnostics"].([]interface{})
	require.True(t, ok, "details should carry parser diagnostics")
	assert.NotEmpty(t, diagnostics)
}

func TestDefaultLinkRoundTrip(t *testing.T) {
	setDefaultLink(t, "e2e_default_backend")

	settings := getDefaultLink(t)
	assert.Equal(t, e2eDomainID, settings.DomainID)
	assert.Equal(t, "e2e_default_backend", settings.DefaultLink)
}

func TestRuleVersionHistory(t *testing.T) {
	ruleID := createRoutingRule(t, management.CreateRoutingRuleRequest{
		MatchClause: "startswith(Action, 'Form_')",
		LinkName:    "e2e_forms",
		Priority:    5,
	})
	defer deleteRoutingRule(t, ruleID)

	newPriority := 7
	updateRoutingRule(t, ruleID, management.UpdateRoutingRuleRequest{Priority: &newPriority})

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/domains/%s/rules/routing/%s/versions", managementServiceURL, e2eDomainID, ruleID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var versions []management.RuleVersion
	err = json.NewDecoder(resp.Body).Decode(&versions)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(versions), 2)
}

func createRoutingRule(t *testing.T, req management.CreateRoutingRuleRequest) string {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/domains/%s/rules/routing", managementServiceURL, e2eDomainID),
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rule management.RoutingRule
	err = json.NewDecoder(resp.Body).Decode(&rule)
	require.NoError(t, err)
	require.NotEmpty(t, rule.ID)

	return rule.ID
}

func createRoutingRuleWithError(t *testing.T, req management.CreateRoutingRuleRequest) *http.Response {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/domains/%s/rules/routing", managementServiceURL, e2eDomainID),
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)

	return resp
}

func getRoutingRule(t *testing.T, id string) management.RoutingRule {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/domains/%s/rules/routing/%s", managementServiceURL, e2eDomainID, id))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rule management.RoutingRule
	err = json.NewDecoder(resp.Body).Decode(&rule)
	require.NoError(t, err)

	return rule
}

func listRoutingRules(t *testing.T) []management.RoutingRule {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/domains/%s/rules/routing", managementServiceURL, e2eDomainID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rules []management.RoutingRule
	err = json.NewDecoder(resp.Body).Decode(&rules)
	require.NoError(t, err)

	return rules
}

func updateRoutingRule(t *testing.T, id string, req management.UpdateRoutingRuleRequest) management.RoutingRule {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq, err := http.NewRequest(
		"PUT",
		fmt.Sprintf("%s/api/v1/domains/%s/rules/routing/%s", managementServiceURL, e2eDomainID, id),
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rule management.RoutingRule
	err = json.NewDecoder(resp.Body).Decode(&rule)
	require.NoError(t, err)

	return rule
}

func deleteRoutingRule(t *testing.T, id string) {
	t.Helper()

	httpReq, err := http.NewRequest(
		"DELETE",
		fmt.Sprintf("%s/api/v1/domains/%s/rules/routing/%s", managementServiceURL, e2eDomainID, id),
		nil,
	)
	require.NoError(t, err)

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func setDefaultLink(t *testing.T, link string) {
	t.Helper()

	body, err := json.Marshal(management.UpdateDefaultLinkRequest{DefaultLink: link})
	require.NoError(t, err)

	httpReq, err := http.NewRequest(
		"PUT",
		fmt.Sprintf("%s/api/v1/domains/%s/default-link", managementServiceURL, e2eDomainID),
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func getDefaultLink(t *testing.T) management.DomainSettings {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/domains/%s/default-link", managementServiceURL, e2eDomainID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var settings management.DomainSettings
	err = json.NewDecoder(resp.Body).Decode(&settings)
	require.NoError(t, err)

	return settings
}

func boolPtr(b bool) *bool {
	return &b
}
