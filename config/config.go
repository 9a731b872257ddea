package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/scanpool/scanpool/account"
	"github.com/scanpool/scanpool/inbox"
	"github.com/scanpool/scanpool/rotation"
	"github.com/scanpool/scanpool/workflow"
)

// validate is a package-level singleton; creating a validator per call is
// expensive.
var validate = validator.New()

// Duration wraps time.Duration so YAML values like "3s" parse naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// InboxConfig points at the disposable-inbox provider.
type InboxConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// Token is the provider's bearer token. Usually supplied through
	// SCANPOOL_INBOX_TOKEN rather than the file.
	Token string `yaml:"token"`
}

// AccountServiceConfig points at the scanning service's account API.
type AccountServiceConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`
	// SessionCookie is the _hcp cookie value. Usually supplied through
	// SCANPOOL_SESSION_COOKIE rather than the file.
	SessionCookie         string `yaml:"session_cookie"`
	ActivationSender      string `yaml:"activation_sender" validate:"required,email"`
	ActivationLinkPattern string `yaml:"activation_link_pattern" validate:"required"`
}

// PollingConfig bounds activation polling.
type PollingConfig struct {
	Attempts int      `yaml:"attempts" validate:"min=1"`
	Delay    Duration `yaml:"delay"`
}

// ScannerConfig names the scanner executable.
type ScannerConfig struct {
	Binary string `yaml:"binary" validate:"required"`
}

// Config is the full scanpool configuration.
type Config struct {
	Inbox          InboxConfig          `yaml:"inbox"`
	AccountService AccountServiceConfig `yaml:"account_service"`
	Polling        PollingConfig        `yaml:"polling"`
	Scanner        ScannerConfig        `yaml:"scanner"`
}

// Default returns the production configuration.
func Default() Config {
	return Config{
		Inbox: InboxConfig{
			BaseURL: inbox.DefaultBaseURL,
		},
		AccountService: AccountServiceConfig{
			BaseURL:               account.DefaultBaseURL,
			ActivationSender:      workflow.DefaultSender,
			ActivationLinkPattern: workflow.DefaultLinkPattern,
		},
		Polling: PollingConfig{
			Attempts: workflow.DefaultAttempts,
			Delay:    Duration(workflow.DefaultDelay),
		},
		Scanner: ScannerConfig{
			Binary: rotation.DefaultBinary,
		},
	}
}

// Load reads the configuration. With an explicit path, failure to read or
// parse is an error; without one, the candidate paths are tried in order and
// missing files fall back to defaults. File values overlay the defaults,
// environment overrides overlay the file, and validation runs last.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	candidates := make([]string, 0, 2)
	if explicit {
		candidates = append(candidates, path)
	} else {
		candidates = append(candidates, "scanpool.yaml")
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, ".config", "scanpool", "config.yaml"))
		}
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if explicit {
				return Config{}, fmt.Errorf("could not read config %s: %w", candidate, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not parse config %s: %w", candidate, err)
		}
		break
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if token := strings.TrimSpace(os.Getenv("SCANPOOL_INBOX_TOKEN")); token != "" {
		cfg.Inbox.Token = token
	}
	if cookie := strings.TrimSpace(os.Getenv("SCANPOOL_SESSION_COOKIE")); cookie != "" {
		cfg.AccountService.SessionCookie = cookie
	}
}

// Validate checks the structural constraints plus the link pattern's
// compilability.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	link, err := regexp.Compile(c.AccountService.ActivationLinkPattern)
	if err != nil {
		return fmt.Errorf("invalid activation_link_pattern: %w", err)
	}
	if link.NumSubexp() < 1 {
		return errors.New("activation_link_pattern must capture the token")
	}

	return nil
}
