package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type gcpPubSubSender struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	log    Logger
}

func newGCPPubSubSender(ctx context.Context, cfg *GCPQueueConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp pubsub configuration is missing")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &gcpPubSubSender{
		client: client,
		topic:  client.Topic(cfg.Topic),
		log:    ensureLogger(log),
	}, nil
}

func pubsubMessage(evt Event) (*pubsub.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_type":  evt.Type,
			"provider_id": evt.ProviderID,
		},
	}, nil
}

// Send publishes the event and waits for the server acknowledgement.
func (s *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	msg, err := pubsubMessage(evt)
	if err != nil {
		return err
	}

	msgID, err := s.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		s.log.ErrorObj("gcp pubsub publisher send failed", "publisher_gcp_pubsub_error", map[string]any{
			"event_id": evt.ID,
			"error":    err.Error(),
		})
		return fmt.Errorf("send message to pubsub: %w", err)
	}

	s.log.DebugObj("gcp pubsub publisher delivered event", "publisher_gcp_pubsub_delivery", map[string]any{
		"event_id":   evt.ID,
		"message_id": msgID,
	})
	return nil
}

// Close flushes pending messages and releases the client.
func (s *gcpPubSubSender) Close() error {
	s.topic.Stop()
	return s.client.Close()
}
