package docrelay

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOURCE_URL", "https://paperless.example.com")
	t.Setenv("SOURCE_TOKEN", "token")
}

func TestLoadConfigEmailDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SMTP_SERVER", "smtp.example.com")
	t.Setenv("SMTP_PORT", "587")
	t.Setenv("LOGIN", "relay")
	t.Setenv("PASSWORD", "hunter2")
	t.Setenv("EMAIL_ACCOUNT", "relay@example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Mode() != SinkModeEmail {
		t.Fatalf("expected email mode by default, got %q", cfg.Mode())
	}
	if cfg.ToEmail != "autobox@sevdesk.email" {
		t.Fatalf("unexpected default recipient %q", cfg.ToEmail)
	}
	if cfg.EmailSubject != "Invoice" || cfg.EmailBody != "Invoice" {
		t.Fatalf("unexpected default subject/body %q/%q", cfg.EmailSubject, cfg.EmailBody)
	}
	if cfg.PollInterval() != 300*time.Second {
		t.Fatalf("unexpected default poll interval %v", cfg.PollInterval())
	}
	if cfg.StagingDir != "workdir" {
		t.Fatalf("unexpected default staging dir %q", cfg.StagingDir)
	}
	if cfg.StateDSN != ".docrelay/state.json" {
		t.Fatalf("unexpected default state dsn %q", cfg.StateDSN)
	}
	if cfg.MaxDeliveryAttempts != 0 {
		t.Fatalf("delivery attempts must default to unlimited, got %d", cfg.MaxDeliveryAttempts)
	}

	sink, err := cfg.BuildSink()
	if err != nil {
		t.Fatalf("build sink failed: %v", err)
	}
	if _, ok := sink.(*EmailSink); !ok {
		t.Fatalf("expected *EmailSink, got %T", sink)
	}
}

func TestLoadConfigUploadMode(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SINK_MODE", "upload")
	t.Setenv("SINK_TOKEN", "sevdesk-key")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Mode() != SinkModeUpload {
		t.Fatalf("expected upload mode, got %q", cfg.Mode())
	}
	sink, err := cfg.BuildSink()
	if err != nil {
		t.Fatalf("build sink failed: %v", err)
	}
	if _, ok := sink.(*SevdeskSink); !ok {
		t.Fatalf("expected *SevdeskSink, got %T", sink)
	}
}

func TestLoadConfigReportsAllMissingVarsAtOnce(t *testing.T) {
	setBaseEnv(t)
	for _, name := range []string{"SMTP_SERVER", "SMTP_PORT", "LOGIN", "PASSWORD", "EMAIL_ACCOUNT"} {
		t.Setenv(name, "")
	}

	_, err := LoadConfig()
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	for _, name := range []string{"SMTP_SERVER", "SMTP_PORT", "LOGIN", "PASSWORD", "EMAIL_ACCOUNT"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error must mention %s, got %q", name, err)
		}
	}
}

func TestLoadConfigUploadModeRequiresSinkToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SINK_MODE", "upload")

	_, err := LoadConfig()
	if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), "SINK_TOKEN") {
		t.Fatalf("expected missing SINK_TOKEN error, got %v", err)
	}
}

func TestConfigPollIntervalFallsBackToDefault(t *testing.T) {
	cfg := Config{PollIntervalSeconds: -5}
	if cfg.PollInterval() != defaultPollInterval {
		t.Fatalf("expected fallback poll interval, got %v", cfg.PollInterval())
	}
	cfg.PollIntervalSeconds = 30
	if cfg.PollInterval() != 30*time.Second {
		t.Fatalf("expected 30s poll interval, got %v", cfg.PollInterval())
	}
}
