package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models onboardingrite.yml.
type Config struct {
	Tenant struct {
		ID   string `yaml:"id"`
		Kind string `yaml:"kind"`
	} `yaml:"tenant"`
	Fields struct {
		Catalog map[string]struct {
			Description string `yaml:"description"`
		} `yaml:"catalog"`
	} `yaml:"fields"`
	Integrations struct {
		RestTimeoutSeconds    int `yaml:"rest_timeout_seconds"`
		PollingTimeoutSeconds int `yaml:"polling_timeout_seconds"`
	} `yaml:"integrations"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		TokenHours int    `yaml:"token_hours"`
	} `yaml:"auth"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with onbr config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Tenant.ID == "" {
		return fmt.Errorf("config.tenant.id is required")
	}
	if c.Tenant.Kind != "onboarding-tenant" {
		return fmt.Errorf("config.tenant.kind must be 'onboarding-tenant'")
	}
	if c.Integrations.RestTimeoutSeconds <= 0 {
		return fmt.Errorf("config.integrations.rest_timeout_seconds must be positive")
	}
	if c.Integrations.PollingTimeoutSeconds <= 0 {
		return fmt.Errorf("config.integrations.polling_timeout_seconds must be positive")
	}
	if c.Auth.TokenHours <= 0 {
		return fmt.Errorf("config.auth.token_hours must be positive")
	}
	for fieldID := range c.Fields.Catalog {
		if fieldID == "" {
			return fmt.Errorf("config.fields.catalog contains empty field id")
		}
	}
	return nil
}

// RestTimeout is the bound on one outbound REST_API task call.
func (c *Config) RestTimeout() time.Duration {
	return time.Duration(c.Integrations.RestTimeoutSeconds) * time.Second
}

// PollingTimeout is the bound on one redirect status poll.
func (c *Config) PollingTimeout() time.Duration {
	return time.Duration(c.Integrations.PollingTimeoutSeconds) * time.Second
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "onboardingrite.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(tenantID string) string {
	return fmt.Sprintf(defaultTemplate, tenantID)
}

// Default returns the default Config struct for a tenant.
func Default(tenantID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, tenantID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `tenant:
  id: %s
  kind: onboarding-tenant

fields:
  catalog:
    personal.state:
      description: "Candidate's state of residence"
    personal.citizenship:
      description: "Citizenship or work-authorization status"
    job.trade:
      description: "Trade or craft classification"
    job.category:
      description: "Job category on the assignment"
    job.union_status:
      description: "Union membership status"
    employment.seniority_years:
      description: "Years of relevant experience"

integrations:
  rest_timeout_seconds: 30
  polling_timeout_seconds: 10

auth:
  jwt_secret: ""
  token_hours: 24

server:
  addr: ":8080"
`
