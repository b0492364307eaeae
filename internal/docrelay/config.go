package docrelay

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type SinkMode string

const (
	SinkModeEmail  SinkMode = "email"
	SinkModeUpload SinkMode = "upload"
)

// Config is the environment-only configuration surface. There are no
// flags and no listening port; the daemon is configured entirely through
// these variables.
type Config struct {
	SourceURL    string `env:"SOURCE_URL,required"`
	SourceToken  string `env:"SOURCE_TOKEN,required"`
	FilterTagID  string `env:"SOURCE_FILTER_TAG_ID"`
	FilterTypeID string `env:"SOURCE_FILTER_TYPE_ID"`

	SinkMode  string `env:"SINK_MODE" envDefault:"email"`
	SinkURL   string `env:"SINK_URL"`
	SinkToken string `env:"SINK_TOKEN"`

	SMTPServer   string `env:"SMTP_SERVER"`
	SMTPPort     int    `env:"SMTP_PORT"`
	Login        string `env:"LOGIN"`
	Password     string `env:"PASSWORD"`
	FromEmail    string `env:"EMAIL_ACCOUNT"`
	ToEmail      string `env:"EMAIL_TO" envDefault:"autobox@sevdesk.email"`
	EmailSubject string `env:"EMAIL_SUBJECT" envDefault:"Invoice"`
	EmailBody    string `env:"EMAIL_BODY" envDefault:"Invoice"`

	PollIntervalSeconds int    `env:"POLL_INTERVAL_SECONDS" envDefault:"300"`
	StagingDir          string `env:"STAGING_DIR" envDefault:"workdir"`
	DeadLetterDir       string `env:"DEAD_LETTER_DIR"`
	StateDSN            string `env:"STATE_DSN" envDefault:".docrelay/state.json"`
	MaxDeliveryAttempts int    `env:"MAX_DELIVERY_ATTEMPTS" envDefault:"0"`
}

// LoadConfig parses the environment and validates the mode-dependent
// requirements. The returned error lists every missing variable at once
// so a broken deployment is fixable in a single pass.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	if missing := cfg.MissingVars(); len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: missing required environment variables: %s",
			ErrInvalidInput, strings.Join(missing, ", "))
	}
	return cfg, nil
}

// MissingVars returns the required variables that are unset for the
// configured sink mode. Base requirements are enforced by env tags; this
// covers the conditional ones.
func (c Config) MissingVars() []string {
	var missing []string
	switch c.Mode() {
	case SinkModeUpload:
		if strings.TrimSpace(c.SinkToken) == "" {
			missing = append(missing, "SINK_TOKEN")
		}
	default:
		if strings.TrimSpace(c.SMTPServer) == "" {
			missing = append(missing, "SMTP_SERVER")
		}
		if c.SMTPPort <= 0 {
			missing = append(missing, "SMTP_PORT")
		}
		if strings.TrimSpace(c.Login) == "" {
			missing = append(missing, "LOGIN")
		}
		if strings.TrimSpace(c.Password) == "" {
			missing = append(missing, "PASSWORD")
		}
		if strings.TrimSpace(c.FromEmail) == "" {
			missing = append(missing, "EMAIL_ACCOUNT")
		}
	}
	return missing
}

func (c Config) Mode() SinkMode {
	if strings.EqualFold(strings.TrimSpace(c.SinkMode), string(SinkModeUpload)) {
		return SinkModeUpload
	}
	return SinkModeEmail
}

func (c Config) PollInterval() time.Duration {
	if c.PollIntervalSeconds <= 0 {
		return defaultPollInterval
	}
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// BuildSink constructs the sink variant the configuration selects.
func (c Config) BuildSink() (DocumentSink, error) {
	switch c.Mode() {
	case SinkModeUpload:
		return NewSevdeskSink(SevdeskSinkOptions{
			BaseURL: c.SinkURL,
			Token:   c.SinkToken,
		})
	default:
		return NewEmailSink(EmailSinkOptions{
			Server:   c.SMTPServer,
			Port:     c.SMTPPort,
			Login:    c.Login,
			Password: c.Password,
			From:     c.FromEmail,
			To:       c.ToEmail,
			Subject:  c.EmailSubject,
			Body:     c.EmailBody,
		})
	}
}
