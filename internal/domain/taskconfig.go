package domain

import (
	"encoding/json"
	"fmt"
)

// Per-type task configuration payloads. Each task type serializes its own
// shape into the task's configuration JSON; the decode helpers below give the
// engine a typed view with exhaustive handling over the four task types.

type FormField struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required"`
}

type CustomFormConfig struct {
	FormFields []FormField `json:"formFields"`
}

type DocumentUploadConfig struct {
	AllowedMimeTypes []string `json:"allowedMimeTypes,omitempty"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes,omitempty"`
	RequiresExpiry   bool     `json:"requiresExpiry,omitempty"`
}

type HeaderPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type AuthConfig struct {
	Type       string `json:"type,omitempty" enum:"NONE,BEARER,API_KEY,BASIC"`
	Token      string `json:"token,omitempty"`
	HeaderName string `json:"headerName,omitempty"`
	APIKey     string `json:"apiKey,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
}

type RestAPIConfig struct {
	BaseURL             string       `json:"baseUrl,omitempty"`
	Endpoint            string       `json:"endpoint,omitempty"`
	Method              string       `json:"method,omitempty"`
	Headers             []HeaderPair `json:"headers,omitempty"`
	RequestBodyTemplate string       `json:"requestBodyTemplate,omitempty"`
	Authentication      AuthConfig   `json:"authentication,omitempty"`
	ExpectedStatusCodes []int        `json:"expectedStatusCodes,omitempty"`
}

type StatusMapping struct {
	ExternalStatus string `json:"externalStatus"`
	TaskStatus     string `json:"taskStatus"`
}

type StatusTracking struct {
	Enabled         bool            `json:"enabled"`
	PollingURL      string          `json:"pollingUrl,omitempty"`
	PollingMethod   string          `json:"pollingMethod,omitempty"`
	PollingHeaders  []HeaderPair    `json:"pollingHeaders,omitempty"`
	PollingAuth     AuthConfig      `json:"pollingAuthentication,omitempty"`
	StatusFieldPath string          `json:"statusFieldPath,omitempty"`
	StatusMapping   []StatusMapping `json:"statusMapping,omitempty"`
}

type RedirectConfig struct {
	RedirectURL    string         `json:"redirectUrl"`
	URLParameters  []HeaderPair   `json:"urlParameters,omitempty"`
	OpenInNewTab   bool           `json:"openInNewTab,omitempty"`
	StatusTracking StatusTracking `json:"statusTracking,omitempty"`
}

func decodeConfig(raw *string, out any) error {
	if raw == nil || *raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(*raw), out)
}

// FormConfig decodes the task configuration as a custom-form payload.
func (t Task) FormConfig() (CustomFormConfig, error) {
	var cfg CustomFormConfig
	if err := decodeConfig(t.ConfigurationJSON, &cfg); err != nil {
		return CustomFormConfig{}, fmt.Errorf("task %s form config: %w", t.ID, err)
	}
	return cfg, nil
}

func (t Task) UploadConfig() (DocumentUploadConfig, error) {
	var cfg DocumentUploadConfig
	if err := decodeConfig(t.ConfigurationJSON, &cfg); err != nil {
		return DocumentUploadConfig{}, fmt.Errorf("task %s upload config: %w", t.ID, err)
	}
	return cfg, nil
}

func (t Task) RestConfig() (RestAPIConfig, error) {
	var cfg RestAPIConfig
	if err := decodeConfig(t.ConfigurationJSON, &cfg); err != nil {
		return RestAPIConfig{}, fmt.Errorf("task %s rest config: %w", t.ID, err)
	}
	return cfg, nil
}

func (t Task) RedirectConfig() (RedirectConfig, error) {
	var cfg RedirectConfig
	if err := decodeConfig(t.ConfigurationJSON, &cfg); err != nil {
		return RedirectConfig{}, fmt.Errorf("task %s redirect config: %w", t.ID, err)
	}
	return cfg, nil
}
