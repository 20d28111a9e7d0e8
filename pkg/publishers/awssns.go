package publishers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type awsSNSSender struct {
	topicARN string
	client   snsClient
	log      Logger
}

func newAWSSNSSender(ctx context.Context, cfg *AWSTopicConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("aws sns configuration is missing")
	}
	awsCfg, err := loadAWSConfig(ctx, cfg.Region, cfg.AWSCredentials)
	if err != nil {
		return nil, err
	}
	return &awsSNSSender{
		topicARN: cfg.TopicARN,
		client:   sns.NewFromConfig(awsCfg),
		log:      ensureLogger(log),
	}, nil
}

func (s *awsSNSSender) publishInput(evt Event) (*sns.PublishInput, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	input := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Subject:  aws.String(evt.Type),
		Message:  aws.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.Type),
			},
			"provider_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.ProviderID),
			},
		},
	}
	if isFIFO(s.topicARN) {
		input.MessageGroupId = aws.String(evt.ProviderID)
		input.MessageDeduplicationId = aws.String(evt.ID)
	}
	return input, nil
}

// Send publishes the event to the configured SNS topic.
func (s *awsSNSSender) Send(ctx context.Context, evt Event) error {
	input, err := s.publishInput(evt)
	if err != nil {
		return err
	}

	resp, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns publisher send failed", "publisher_sns_error", map[string]any{
			"event_id": evt.ID,
			"error":    err.Error(),
		})
		return fmt.Errorf("send message to sns: %w", err)
	}
	s.log.DebugObj("sns publisher delivered event", "publisher_sns_delivery", map[string]any{
		"event_id":   evt.ID,
		"message_id": aws.ToString(resp.MessageId),
	})
	return nil
}
