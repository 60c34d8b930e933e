package management

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"courier/internal/constants"
	"courier/internal/logger"
	"courier/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		domains := v1.Group("/domains/:domainId")
		{
			rules := domains.Group("/rules/routing")
			{
				rules.GET("", h.ListRules)
				rules.POST("", h.CreateRule)
				rules.GET("/:id", h.GetRule)
				rules.PUT("/:id", h.UpdateRule)
				rules.DELETE("/:id", h.DeleteRule)
				rules.GET("/:id/versions", h.GetRuleVersions)
				rules.GET("/:id/audit", h.GetRuleAuditLogs)
			}

			domains.GET("/default-link", h.GetDefaultLink)
			domains.PUT("/default-link", h.SetDefaultLink)

			messages := domains.Group("/messages")
			{
				messages.GET("/:messageId", h.GetMessageStatus)
				messages.GET("/:messageId/evidences", h.GetMessageEvidences)
			}
		}

		audit := v1.Group("/audit")
		{
			audit.GET("/logs", h.GetAuditLogs)
		}
	}
}

// ListRules godoc
// @Summary      List routing rules of a domain
// @Description  Get all routing rules configured for a domain, ordered by priority
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string  true  "Domain ID"
// @Success      200       {array}   RoutingRule
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing [get]
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.Service.ListRoutingRules(c.Request.Context(), c.Param("domainId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule godoc
// @Summary      Create a routing rule
// @Description  Create a routing rule in a domain. A match clause that does not parse is rejected with all diagnostics in the response.
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string                    true  "Domain ID"
// @Param        rule      body      CreateRoutingRuleRequest  true  "Routing rule data"
// @Success      201       {object}  RoutingRule
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      409       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.CreateRoutingRule(c.Request.Context(), c.Param("domainId"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get a routing rule by ID
// @Description  Get a specific routing rule of a domain
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string  true  "Domain ID"
// @Param        id        path      string  true  "Rule ID"
// @Success      200       {object}  RoutingRule
// @Failure      404       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.Service.GetRoutingRule(c.Request.Context(), c.Param("domainId"), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update a routing rule
// @Description  Update an existing routing rule. Only the provided fields change.
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string                    true  "Domain ID"
// @Param        id        path      string                    true  "Rule ID"
// @Param        rule      body      UpdateRoutingRuleRequest  true  "Updated rule data"
// @Success      200       {object}  RoutingRule
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      404       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing/{id} [put]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRoutingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	rule, err := h.Service.UpdateRoutingRule(c.Request.Context(), c.Param("domainId"), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete a routing rule
// @Description  Delete a routing rule from a domain
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string  true  "Domain ID"
// @Param        id        path      string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	err := h.Service.DeleteRoutingRule(c.Request.Context(), c.Param("domainId"), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetRuleVersions godoc
// @Summary      Get rule version history
// @Description  Get version history for a specific routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string  true  "Domain ID"
// @Param        id        path      string  true  "Rule ID"
// @Success      200       {array}   RuleVersion
// @Failure      404       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing/{id}/versions [get]
func (h *Handler) GetRuleVersions(c *gin.Context) {
	versions, err := h.Service.GetRuleVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, versions)
}

// GetRuleAuditLogs godoc
// @Summary      Get audit logs for a rule
// @Description  Get audit logs for a specific routing rule
// @Tags         routing-rules
// @Accept       json
// @Produce      json
// @Param        domainId  path      string  true   "Domain ID"
// @Param        id        path      string  true   "Rule ID"
// @Param        limit     query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200       {array}   AuditLog
// @Failure      404       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/rules/routing/{id}/audit [get]
func (h *Handler) GetRuleAuditLogs(c *gin.Context) {
	id := c.Param("id")
	limit := parseLimit(c.Query("limit"))

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), &id, "routing", limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// GetDefaultLink godoc
// @Summary      Get the default backend link of a domain
// @Description  Get the fallback link used when no routing rule matches a message
// @Tags         domains
// @Accept       json
// @Produce      json
// @Param        domainId  path      string  true  "Domain ID"
// @Success      200       {object}  DomainSettings
// @Failure      404       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/default-link [get]
func (h *Handler) GetDefaultLink(c *gin.Context) {
	settings, err := h.Service.GetDefaultLink(c.Request.Context(), c.Param("domainId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// SetDefaultLink godoc
// @Summary      Set the default backend link of a domain
// @Description  Set the fallback link used when no routing rule matches a message
// @Tags         domains
// @Accept       json
// @Produce      json
// @Param        domainId  path      string                    true  "Domain ID"
// @Param        link      body      UpdateDefaultLinkRequest  true  "Default link"
// @Success      200       {object}  DomainSettings
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      500       {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/default-link [put]
func (h *Handler) SetDefaultLink(c *gin.Context) {
	var req UpdateDefaultLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	settings, err := h.Service.SetDefaultLink(c.Request.Context(), c.Param("domainId"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// GetMessageStatus godoc
// @Summary      Get the lifecycle status of a message
// @Description  Get the evidence lifecycle state, evidence history and processing errors of a business message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        domainId   path      string  true  "Domain ID"
// @Param        messageId  path      string  true  "Connector message ID"
// @Success      200        {object}  MessageStatus
// @Failure      404        {object}  errors.ErrorResponse
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/messages/{messageId} [get]
func (h *Handler) GetMessageStatus(c *gin.Context) {
	status, err := h.Service.GetMessageStatus(c.Request.Context(), c.Param("domainId"), c.Param("messageId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetMessageEvidences godoc
// @Summary      Get the archived evidences of a message
// @Description  Get the raw evidence payloads archived for a business message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        domainId   path      string  true  "Domain ID"
// @Param        messageId  path      string  true  "Connector message ID"
// @Success      200        {array}   ArchivedEvidenceView
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /domains/{domainId}/messages/{messageId}/evidences [get]
func (h *Handler) GetMessageEvidences(c *gin.Context) {
	evidences, err := h.Service.GetMessageEvidences(c.Request.Context(), c.Param("domainId"), c.Param("messageId"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, evidences)
}

// GetAuditLogs godoc
// @Summary      Get audit logs
// @Description  Get audit logs with optional filtering by rule ID and rule type
// @Tags         audit
// @Accept       json
// @Produce      json
// @Param        rule_id    query     string  false  "Filter by rule ID"
// @Param        rule_type  query     string  false  "Filter by rule type (routing)"
// @Param        limit      query     int     false  "Maximum number of logs to return (1-1000)" default(100)
// @Success      200        {array}   AuditLog
// @Failure      500        {object}  errors.ErrorResponse
// @Router       /audit/logs [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	ruleID := c.Query("rule_id")
	ruleType := c.Query("rule_type")
	limit := parseLimit(c.Query("limit"))

	var ruleIDPtr *string
	if ruleID != "" {
		ruleIDPtr = &ruleID
	}

	logs, err := h.Service.GetAuditLogs(c.Request.Context(), ruleIDPtr, ruleType, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func parseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}
