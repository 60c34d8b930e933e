package processing

import (
	"context"
	"sync"

	"github.com/sony/gobreaker"

	"courier/internal/broker"
	"courier/internal/config"
	"courier/internal/logger"
	"courier/pkg/circuitbreaker"
	"courier/pkg/models"
)

// Dispatcher publishes envelopes toward the gateway and the backend links.
// Each destination topic gets its own circuit breaker so one dead backend
// cannot take the gateway path down with it.
type Dispatcher struct {
	producer broker.Producer
	kafka    config.KafkaConfig
	cbCfg    config.CircuitBreakerConfig
	logger   logger.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Wrapper
}

func NewDispatcher(producer broker.Producer, kafka config.KafkaConfig, cbCfg config.CircuitBreakerConfig, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		producer: producer,
		kafka:    kafka,
		cbCfg:    cbCfg,
		logger:   log,
		breakers: make(map[string]*circuitbreaker.Wrapper),
	}
}

// ToGateway publishes an envelope on the gateway outbound topic.
func (d *Dispatcher) ToGateway(ctx context.Context, env models.MessageEnvelope) error {
	return d.publish(ctx, d.kafka.GatewayOutbound, env)
}

// ToBackend publishes an envelope on the topic of the given backend link.
func (d *Dispatcher) ToBackend(ctx context.Context, link string, env models.MessageEnvelope) error {
	return d.publish(ctx, d.kafka.BackendPrefix+link, env)
}

func (d *Dispatcher) publish(ctx context.Context, topic string, env models.MessageEnvelope) error {
	if !d.cbCfg.Enabled {
		return d.producer.Publish(ctx, topic, env)
	}

	cb := d.breaker(topic)
	_, err := cb.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, d.producer.Publish(ctx, topic, env)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		d.logger.WarnwCtx(ctx, "Publish rejected by circuit breaker",
			"topic", topic,
			"envelope_id", env.ID,
		)
	}
	return err
}

func (d *Dispatcher) breaker(topic string) *circuitbreaker.Wrapper {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb, ok := d.breakers[topic]; ok {
		return cb
	}

	cfg := circuitbreaker.DefaultConfig("publish:" + topic)
	if d.cbCfg.MaxRequests > 0 {
		cfg.MaxRequests = d.cbCfg.MaxRequests
	}
	if d.cbCfg.Interval > 0 {
		cfg.Interval = d.cbCfg.Interval
	}
	if d.cbCfg.Timeout > 0 {
		cfg.Timeout = d.cbCfg.Timeout
	}
	if d.cbCfg.FailureRatio > 0 && d.cbCfg.MinRequests > 0 {
		ratio := d.cbCfg.FailureRatio
		minRequests := d.cbCfg.MinRequests
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= ratio
		}
	}

	cb := circuitbreaker.NewWrapper(cfg)
	d.breakers[topic] = cb
	return cb
}
