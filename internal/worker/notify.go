package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/collab"
	"github.com/fabriqd/fabriq/internal/config"
	"github.com/fabriqd/fabriq/internal/dto"
	"github.com/fabriqd/fabriq/internal/guard"
	"github.com/fabriqd/fabriq/internal/models"
	"github.com/fabriqd/fabriq/internal/outbox"
	"go.uber.org/zap"
)

// NotifyFamily runs the notifications queue: factory webhooks and the
// outbox relay.
type NotifyFamily struct {
	factory collab.FactoryClient
	relay   *outbox.Relay
	log     *zap.SugaredLogger
}

func NewNotifyFamily(factory collab.FactoryClient, relay *outbox.Relay, log *zap.SugaredLogger) *NotifyFamily {
	return &NotifyFamily{factory: factory, relay: relay, log: log}
}

var _ Handler = (*NotifyFamily)(nil)

func (f *NotifyFamily) Timeout(config.JobName) time.Duration {
	return config.TimeoutNotify
}

func (f *NotifyFamily) Handle(ctx context.Context, _ *guard.Execution, job *models.Job) (any, error) {
	switch job.Name {
	case config.JobNotifyFactory:
		var p dto.FactoryNotifyPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return nil, common.Fatalf("unmarshal notify payload: %v", err)
		}
		return f.notifyFactory(ctx, &p)
	case config.JobPublishOutbox:
		published, err := f.relay.Drain(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"published": published}, nil
	default:
		return nil, common.Fatalf("unknown notification job %s", job.Name)
	}
}

// notifyFactory delivers the bundle-ready webhook. A delivery failure
// retries this job only; it can never touch the order that spawned it.
func (f *NotifyFamily) notifyFactory(ctx context.Context, p *dto.FactoryNotifyPayload) (any, error) {
	err := f.factory.Notify(ctx, p.WebhookURL, map[string]any{
		"order_id":   p.OrderID,
		"bundle_url": p.BundleURL,
		"event":      "bundle.ready",
	})
	if err != nil {
		return nil, fmt.Errorf("factory notify: %w", err)
	}

	f.log.Infow("factory notified", "order_id", p.OrderID, "url", p.WebhookURL)
	return map[string]any{"order_id": p.OrderID, "delivered": true}, nil
}
