package routing

import (
	"courier/internal/config_handler"
	"courier/internal/logger"
	"courier/pkg/models"
)

type Handler = config_handler.Handler

func NewHandler(service *Service, log logger.Logger) *Handler {
	return config_handler.NewHandlerWithReloader(
		models.EventTypeRoutingRuleUpdated,
		models.ServiceTypeRouting,
		service,
		log,
	)
}
