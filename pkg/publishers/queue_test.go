package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{MessageId: aws.String("m-2")}, nil
}

func sampleEvent() Event {
	return Event{ID: "5f0c6a2e-0000-4000-8000-000000000001", Type: EventArticleIngested, ProviderID: "cnn", URL: "https://www.cnnbrasil.com.br/economia/x/"}
}

func TestSQSSenderFIFO(t *testing.T) {
	client := &fakeSQS{}
	s := &awsSQSSender{queueURL: "https://sqs.sa-east-1.amazonaws.com/1/noticias.fifo", client: client, log: ensureLogger(nil)}

	require.NoError(t, s.Send(context.Background(), sampleEvent()))
	in := client.input
	assert.Equal(t, "cnn", aws.ToString(in.MessageGroupId))
	assert.Equal(t, sampleEvent().ID, aws.ToString(in.MessageDeduplicationId))
	assert.Equal(t, EventArticleIngested, aws.ToString(in.MessageAttributes["event_type"].StringValue))

	var body Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &body))
	assert.Equal(t, sampleEvent().URL, body.URL)
}

func TestSQSSenderStandardQueue(t *testing.T) {
	client := &fakeSQS{err: errors.New("throttled")}
	s := &awsSQSSender{queueURL: "https://sqs.sa-east-1.amazonaws.com/1/noticias", client: client, log: ensureLogger(nil)}

	qp := &queuePublisher{id: "fila", typ: TypeQueue, provider: QueueProviderAWSSQS, sender: s}
	err := qp.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aws-sqs")
	assert.Nil(t, client.input.MessageGroupId)
}

func TestSNSSender(t *testing.T) {
	client := &fakeSNS{}
	s := &awsSNSSender{topicARN: "arn:aws:sns:sa-east-1:1:noticias", client: client, log: ensureLogger(nil)}

	require.NoError(t, s.Send(context.Background(), sampleEvent()))
	assert.Equal(t, EventArticleIngested, aws.ToString(client.input.Subject))
	assert.Nil(t, client.input.MessageGroupId)
	assert.Equal(t, "cnn", aws.ToString(client.input.MessageAttributes["provider_id"].StringValue))
}

func TestPubSubMessage(t *testing.T) {
	msg, err := pubsubMessage(sampleEvent())
	require.NoError(t, err)
	assert.Equal(t, "cnn", msg.Attributes["provider_id"])
	assert.Contains(t, string(msg.Data), `"type":"article.ingested"`)
}

func TestQueuePublisherUnknownProvider(t *testing.T) {
	_, err := newQueuePublisher(context.Background(), PublisherConfig{ID: "x", Type: TypeQueue, Queue: &QueuePublisherConfig{Provider: "kafka"}}, nil)
	require.Error(t, err)
}
