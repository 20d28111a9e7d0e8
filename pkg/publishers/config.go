package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one publisher entry of the publishers file.
type PublisherConfig struct {
	ID      string                `json:"id" yaml:"id"`
	Type    string                `json:"type" yaml:"type"`
	Enabled *bool                 `json:"enabled" yaml:"enabled"`
	Queue   *QueuePublisherConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPPublisherConfig  `json:"http" yaml:"http"`
}

// QueuePublisherConfig selects a cloud queue provider.
type QueuePublisherConfig struct {
	Provider string          `json:"provider" yaml:"provider"`
	SQS      *AWSQueueConfig `json:"sqs" yaml:"sqs"`
	SNS      *AWSTopicConfig `json:"sns" yaml:"sns"`
	GCP      *GCPQueueConfig `json:"gcp" yaml:"gcp"`
}

// AWSCredentials are optional static credentials; when empty the default AWS
// credential chain applies.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSQueueConfig holds AWS SQS settings.
type AWSQueueConfig struct {
	AWSCredentials `yaml:",inline"`

	QueueURL string `json:"queue_url" yaml:"queue_url"`
	Region   string `json:"region" yaml:"region"`
}

// AWSTopicConfig holds AWS SNS settings.
type AWSTopicConfig struct {
	AWSCredentials `yaml:",inline"`

	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// GCPQueueConfig holds Pub/Sub topic settings.
type GCPQueueConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

// LoadConfig reads publisher entries from a YAML or JSON file, expanding
// environment variables, and returns the enabled ones.
func LoadConfig(path string) ([]PublisherConfig, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}
	return ParseConfig([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

// ParseConfig decodes, sanitizes and validates publisher entries. ext picks
// the decoder; an empty ext tries YAML then JSON.
func ParseConfig(data []byte, ext string) ([]PublisherConfig, error) {
	file, err := decodeConfig(data, ext)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	enabled := make([]PublisherConfig, 0, len(file.Publishers))
	for i, raw := range file.Publishers {
		cfg := sanitizePublisherConfig(raw)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if cfg.EnabledValue() {
			enabled = append(enabled, cfg)
		}
	}
	return enabled, nil
}

func decodeConfig(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		ext string
		fn  func([]byte, any) error
	}{
		{ext: ".yaml", fn: yaml.Unmarshal},
		{ext: ".yml", fn: yaml.Unmarshal},
		{ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file configFile
		if lastErr = d.fn(data, &file); lastErr == nil {
			return file, nil
		}
	}
	if lastErr == nil {
		return configFile{}, fmt.Errorf("publishers file extension %q not supported (expected YAML or JSON)", ext)
	}
	return configFile{}, fmt.Errorf("decode publishers file: %w", lastErr)
}

func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Queue != nil {
		qc := *cfg.Queue
		qc.Provider = strings.ToLower(strings.TrimSpace(qc.Provider))
		if qc.SQS != nil {
			c := *qc.SQS
			c.QueueURL = strings.TrimSpace(c.QueueURL)
			c.Region = strings.TrimSpace(c.Region)
			c.AWSCredentials = trimCredentials(c.AWSCredentials)
			qc.SQS = &c
		}
		if qc.SNS != nil {
			c := *qc.SNS
			c.TopicARN = strings.TrimSpace(c.TopicARN)
			c.Region = strings.TrimSpace(c.Region)
			c.AWSCredentials = trimCredentials(c.AWSCredentials)
			qc.SNS = &c
		}
		if qc.GCP != nil {
			g := *qc.GCP
			g.ProjectID = strings.TrimSpace(g.ProjectID)
			g.Topic = strings.TrimSpace(g.Topic)
			g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
			qc.GCP = &g
		}
		cfg.Queue = &qc
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	return cfg
}

func trimCredentials(c AWSCredentials) AWSCredentials {
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)
	return c
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case TypeQueue:
		return validateQueueConfig(cfg.ID, cfg.Queue)
	case TypeHTTP:
		return validateHTTPConfig(cfg.ID, cfg.HTTP)
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	default:
		return fmt.Errorf("type %q not supported for publisher %q", cfg.Type, cfg.ID)
	}
}

func validateQueueConfig(id string, qc *QueuePublisherConfig) error {
	if qc == nil {
		return fmt.Errorf("queue config required for publisher %q", id)
	}
	switch qc.Provider {
	case QueueProviderAWSSQS:
		if qc.SQS == nil || qc.SQS.QueueURL == "" || qc.SQS.Region == "" {
			return fmt.Errorf("sqs.queue_url and sqs.region are required for publisher %q", id)
		}
		return validateCredentials(id, "sqs", qc.SQS.AWSCredentials)
	case QueueProviderAWSSNS:
		if qc.SNS == nil || qc.SNS.TopicARN == "" || qc.SNS.Region == "" {
			return fmt.Errorf("sns.topic_arn and sns.region are required for publisher %q", id)
		}
		return validateCredentials(id, "sns", qc.SNS.AWSCredentials)
	case QueueProviderGCP:
		if qc.GCP == nil || qc.GCP.ProjectID == "" || qc.GCP.Topic == "" {
			return fmt.Errorf("gcp.project_id and gcp.topic are required for publisher %q", id)
		}
		return nil
	default:
		return fmt.Errorf("queue provider %q not supported for publisher %q", qc.Provider, id)
	}
}

// validateCredentials rejects half-configured static credentials.
func validateCredentials(id, section string, c AWSCredentials) error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", section, section, id)
	}
	return nil
}

func validateHTTPConfig(id string, c *HTTPPublisherConfig) error {
	if c == nil || c.URL == "" {
		return fmt.Errorf("http.url is required for publisher %q", id)
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("http.url %q must be an absolute http(s) url for publisher %q", c.URL, id)
	}
	switch c.Method {
	case "POST", "PUT":
	default:
		return fmt.Errorf("http.method %q not supported for publisher %q", c.Method, id)
	}
	return nil
}
