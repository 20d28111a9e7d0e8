package publishers

import (
	"context"
	"fmt"
	"io"
)

// queueSender delivers one event to a cloud queue or topic.
type queueSender interface {
	Send(ctx context.Context, evt Event) error
}

type queuePublisher struct {
	id       string
	typ      string
	provider string
	sender   queueSender
}

func newQueuePublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}
	sender, err := newQueueSender(ctx, cfg.Queue, log)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	return &queuePublisher{id: cfg.ID, typ: cfg.Type, provider: cfg.Queue.Provider, sender: sender}, nil
}

func newQueueSender(ctx context.Context, q *QueuePublisherConfig, log Logger) (queueSender, error) {
	switch q.Provider {
	case QueueProviderAWSSQS:
		return newAWSSQSSender(ctx, q.SQS, log)
	case QueueProviderAWSSNS:
		return newAWSSNSSender(ctx, q.SNS, log)
	case QueueProviderGCP:
		return newGCPPubSubSender(ctx, q.GCP, log)
	default:
		return nil, fmt.Errorf("queue provider %q is not supported", q.Provider)
	}
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return p.typ }

func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if err := p.sender.Send(ctx, evt); err != nil {
		return fmt.Errorf("%s send for publisher %q: %w", p.provider, p.id, err)
	}
	return nil
}

// Close releases the sender's client connection, if it holds one.
func (p *queuePublisher) Close() error {
	if c, ok := p.sender.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
