package management

import (
	"context"
	"time"

	"courier/internal/broker"
	"courier/pkg/models"
)

// ConfigEventProducer announces configuration changes on the config update
// topic so running connector instances refresh their routing tables without
// waiting for the periodic reload.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewConfigEventProducer(producer broker.Producer, topic string) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *ConfigEventProducer) PublishRoutingRuleEvent(ctx context.Context, action, domainID, ruleID, changedBy string) error {
	event := models.ConfigUpdateEvent{
		EventType:   models.EventTypeRoutingRuleUpdated,
		ServiceType: models.ServiceTypeRouting,
		DomainID:    domainID,
		RuleID:      ruleID,
		Action:      action,
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
	}
	return p.publishEvent(ctx, event)
}

func (p *ConfigEventProducer) PublishDomainConfigEvent(ctx context.Context, action, domainID, changedBy string, metadata map[string]interface{}) error {
	event := models.ConfigUpdateEvent{
		EventType:   models.EventTypeDomainConfigUpdated,
		ServiceType: models.ServiceTypeConnector,
		DomainID:    domainID,
		Action:      action,
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
		Metadata:    metadata,
	}
	return p.publishEvent(ctx, event)
}

func (p *ConfigEventProducer) publishEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}
	return p.producer.PublishEvent(ctx, p.topic, event)
}
