package publishers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	t.Setenv("WEBHOOK_TOKEN", "s3cret")
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
publishers:
  - id: Webhook
    type: http
    http:
      url: https://hooks.example.com/noticias
      headers:
        Authorization: "Bearer ${WEBHOOK_TOKEN}"
        X-Empty: "  "
  - id: fila
    type: queue
    queue:
      provider: AWS-SQS
      sqs:
        queue_url: https://sqs.sa-east-1.amazonaws.com/123/noticias.fifo
        region: sa-east-1
  - id: desligado
    type: http
    enabled: false
    http:
      url: https://hooks.example.com/off
`), 0o600))

	cfgs, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfgs, 2)

	hook := cfgs[0]
	assert.Equal(t, "webhook", hook.ID)
	assert.Equal(t, "POST", hook.HTTP.Method)
	assert.Equal(t, httpDefaultTimeoutSeconds, hook.HTTP.TimeoutSeconds)
	assert.Equal(t, map[string]string{"Authorization": "Bearer s3cret"}, hook.HTTP.Headers)

	queue := cfgs[1]
	assert.Equal(t, QueueProviderAWSSQS, queue.Queue.Provider)
	assert.Equal(t, "sa-east-1", queue.Queue.SQS.Region)
}

func TestParseConfigJSON(t *testing.T) {
	cfgs, err := ParseConfig([]byte(`{"publishers":[{"id":"topico","type":"queue","queue":{"provider":"aws-sns","sns":{"topic_arn":"arn:aws:sns:sa-east-1:123:noticias","region":"sa-east-1","access_key_id":"AKIA","secret_access_key":"x"}}}]}`), ".json")
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, "AKIA", cfgs[0].Queue.SNS.AccessKeyID)
}

func TestParseConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing id", `publishers: [{type: http, http: {url: "https://x.example"}}]`, "id is required"},
		{"missing type", `publishers: [{id: a}]`, "type is required"},
		{"unknown type", `publishers: [{id: a, type: kafka}]`, "not supported"},
		{"relative url", `publishers: [{id: a, type: http, http: {url: "/hook"}}]`, "absolute http(s) url"},
		{"bad method", `publishers: [{id: a, type: http, http: {url: "https://x.example", method: get}}]`, "http.method"},
		{"azure", `publishers: [{id: a, type: queue, queue: {provider: azure}}]`, "not supported"},
		{"half credentials", `publishers: [{id: a, type: queue, queue: {provider: aws-sqs, sqs: {queue_url: "https://q", region: r, access_key_id: k}}}]`, "must be set together"},
		{"gcp without topic", `publishers: [{id: a, type: queue, queue: {provider: gcp, gcp: {project_id: p}}}]`, "gcp.topic"},
		{"duplicate", `publishers: [{id: a, type: http, http: {url: "https://x.example"}}, {id: A, type: http, http: {url: "https://y.example"}}]`, "duplicate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), ".yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseConfigUnknownExtension(t *testing.T) {
	_, err := ParseConfig([]byte(`publishers: []`), ".toml")
	require.Error(t, err)
}
