package config_handler

import (
	"context"

	"courier/internal/logger"
	"courier/pkg/models"
)

type ConfigReloader interface {
	ReloadRules(ctx context.Context, skipJitter ...bool) error
}

// DomainConfigApplier reacts to domain-level configuration changes that do
// not translate into a plain rule reload.
type DomainConfigApplier interface {
	ApplyDomainConfig(ctx context.Context, event models.ConfigUpdateEvent) error
}

// Handler consumes configuration update events from the broker and triggers
// the matching reload on the owning service. Events for other services are
// ignored silently; every connector instance sees every event.
type Handler struct {
	expectedEventType   string
	expectedServiceType string
	reloader            ConfigReloader
	applier             DomainConfigApplier
	logger              logger.Logger
}

func NewHandler(expectedEventType, expectedServiceType string, log logger.Logger) *Handler {
	return &Handler{
		expectedEventType:   expectedEventType,
		expectedServiceType: expectedServiceType,
		logger:              log,
	}
}

func NewHandlerWithReloader(expectedEventType, expectedServiceType string, reloader ConfigReloader, log logger.Logger) *Handler {
	return NewHandler(expectedEventType, expectedServiceType, log).WithReloader(reloader)
}

func (h *Handler) WithReloader(reloader ConfigReloader) *Handler {
	h.reloader = reloader
	return h
}

func (h *Handler) WithApplier(applier DomainConfigApplier) *Handler {
	h.applier = applier
	return h
}

func (h *Handler) HandleConfigUpdateEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if event.EventType != h.expectedEventType {
		return nil
	}
	if event.ServiceType != h.expectedServiceType {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received config update event",
		"event_type", event.EventType,
		"action", event.Action,
		"domain_id", event.DomainID,
		"rule_id", event.RuleID,
	)

	if h.reloader != nil {
		// Reloads run without jitter: the operator just changed something
		// and expects it to take effect.
		if err := h.reloader.ReloadRules(ctx, true); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to reload rules after config update", "error", err)
			return err
		}
		h.logger.InfowCtx(ctx, "Rules reloaded after config update", "action", event.Action)
	}

	if h.applier != nil {
		if err := h.applier.ApplyDomainConfig(ctx, event); err != nil {
			h.logger.ErrorwCtx(ctx, "Failed to apply domain config update", "error", err)
			return err
		}
	}

	return nil
}
