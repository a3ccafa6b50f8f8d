package publishers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: http2
    type: http
    enabled: true
    http:
      url: https://example.com/2
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 1 || enabled[0].ID != "http2" {
		t.Fatalf("expected only http2 enabled, got %#v", enabled)
	}
}

func TestValidatePublisherConfigRejectsMissingHTTP(t *testing.T) {
	err := PublisherConfig{ID: "h1", Type: TypeHTTP}.validate()
	if err == nil || !strings.Contains(err.Error(), "http.url") {
		t.Fatalf("expected http.url validation error, got %v", err)
	}
}

func TestLoadRegistryAllTypes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: queue
    type: SQS
    sqs:
      uri: " https://sqs.us-east-1.amazonaws.com/123/whatsnew "
      region: us-east-1
  - id: topic
    type: sns
    sns:
      topic_arn: arn:aws:sns:us-east-1:123:whatsnew
      region: us-east-1
      credentials:
        access_key_id: AKIA
        secret_access_key: secret
  - id: pubsub
    type: gcp_pubsub
    gcp_pubsub:
      project_id: demo
      topic: whatsnew
  - id: hook
    type: http
    http:
      url: https://example.com/hook
      headers:
        X-Empty: "  "
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := len(reg.All()); got != 4 {
		t.Fatalf("expected 4 publishers, got %d", got)
	}

	queue, ok := reg.ByID("queue")
	if !ok || queue.Type != TypeSQS {
		t.Fatalf("queue publisher not normalized: %#v", queue)
	}
	if queue.SQS.QueueURL != "https://sqs.us-east-1.amazonaws.com/123/whatsnew" {
		t.Fatalf("queue url not trimmed: %q", queue.SQS.QueueURL)
	}

	topic, _ := reg.ByID("topic")
	if topic.SNS == nil || topic.SNS.Credentials == nil || topic.SNS.Credentials.AccessKeyID != "AKIA" {
		t.Fatalf("sns credentials not decoded: %#v", topic.SNS)
	}

	hook, _ := reg.ByID("hook")
	if hook.HTTP.Method != httpDefaultMethod || hook.HTTP.TimeoutSeconds != httpDefaultTimeoutSeconds {
		t.Fatalf("http defaults not applied: %#v", hook.HTTP)
	}
	if hook.HTTP.Headers != nil {
		t.Fatalf("blank headers should be dropped, got %#v", hook.HTTP.Headers)
	}
}

func TestLoadRegistryRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: hook
    type: http
    http:
      url: https://example.com/a
  - id: hook
    type: http
    http:
      url: https://example.com/b
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestValidatePublisherConfigRejectsIncompleteBrokers(t *testing.T) {
	cases := []PublisherConfig{
		{ID: "s", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "us-east-1"}},
		{ID: "g", Type: TypeGCPPubSub, GCP: &GCPQueueConfig{ProjectID: "demo"}},
		{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "https://q"}},
		{ID: "x", Type: "kafka"},
	}
	for _, cfg := range cases {
		if err := cfg.normalize().validate(); err == nil {
			t.Fatalf("expected validation error for %s", cfg.ID)
		}
	}
}

func TestValidateListsEveryMissingField(t *testing.T) {
	err := PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{}}.validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if want := `publisher "q" is missing sqs.region, sqs.uri`; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"hook","type":"HTTP","http":{"url":"https://example.com","method":"put"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	hook, ok := reg.ByID(" hook ")
	if !ok || hook.Type != TypeHTTP || hook.HTTP.Method != "PUT" {
		t.Fatalf("json publisher not normalized: %#v", hook)
	}
}

func TestLoadRegistryRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	if err := os.WriteFile(path, []byte("publishers: []\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected error for empty publishers list")
	}
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestBuildAllSkipsDisabled(t *testing.T) {
	built := 0
	reg := NewRegistry(map[string]Builder{
		TypeHTTP: func(_ context.Context, cfg PublisherConfig, _ Logger) (Publisher, error) {
			built++
			return &stubPublisher{id: cfg.ID, typ: TypeHTTP}, nil
		},
	})
	off := false
	pubs, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "a", Type: TypeHTTP},
		{ID: "b", Type: TypeHTTP, Enabled: &off},
	}, nil)
	if err != nil {
		t.Fatalf("BuildAll: %v", err)
	}
	if len(pubs) != 1 || built != 1 || pubs[0].ID() != "a" {
		t.Fatalf("expected only publisher a, got %d built", built)
	}
}

func TestBuildAllUnknownType(t *testing.T) {
	_, err := BuildAll(context.Background(), NewRegistry(nil), []PublisherConfig{{ID: "a", Type: "kafka"}}, nil)
	if err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}
