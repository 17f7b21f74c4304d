package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/entrhq/vgtabs/pkg/augment"
	"github.com/entrhq/vgtabs/pkg/devops"
	"github.com/entrhq/vgtabs/pkg/page"
	"github.com/entrhq/vgtabs/pkg/render"
)

const (
	// SectionIDAugment is the identifier for the augmentation settings section
	SectionIDAugment = "augment"
)

// AugmentSection holds everything the augmentation pipeline needs to find
// its way around the library page and the REST API.
type AugmentSection struct {
	BaseURL               string        `json:"base_url"`
	TableSelector         string        `json:"table_selector"`
	DataProvidersSelector string        `json:"data_providers_selector"`
	SpacerSelector        string        `json:"spacer_selector"`
	Timeout               time.Duration `json:"timeout"`
	Timezone              string        `json:"timezone"`
	URLPatterns           []string      `json:"url_patterns"`
	PersonalAccessToken   string        `json:"personal_access_token"`
	mu                    sync.RWMutex
}

// NewAugmentSection creates a new augment section with default settings.
func NewAugmentSection() *AugmentSection {
	s := &AugmentSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *AugmentSection) ID() string {
	return SectionIDAugment
}

// Title returns the section title.
func (s *AugmentSection) Title() string {
	return "Augmentation"
}

// Description returns the section description.
func (s *AugmentSection) Description() string {
	return "Configure which pages are augmented, the selectors used on them, and how the variable groups API is reached."
}

// Data returns the current configuration data.
func (s *AugmentSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"base_url":                s.BaseURL,
		"table_selector":          s.TableSelector,
		"data_providers_selector": s.DataProvidersSelector,
		"spacer_selector":         s.SpacerSelector,
		"timeout":                 s.Timeout.String(),
		"timezone":                s.Timezone,
		"url_patterns":            append([]string(nil), s.URLPatterns...),
		"personal_access_token":   s.PersonalAccessToken,
	}
}

// SetData updates the configuration from the provided data. Unknown keys are
// ignored.
func (s *AugmentSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "base_url":
			s.BaseURL, err = stringValue(key, value)
		case "table_selector":
			s.TableSelector, err = stringValue(key, value)
		case "data_providers_selector":
			s.DataProvidersSelector, err = stringValue(key, value)
		case "spacer_selector":
			s.SpacerSelector, err = stringValue(key, value)
		case "timeout":
			s.Timeout, err = durationValue(key, value)
		case "timezone":
			s.Timezone, err = stringValue(key, value)
		case "url_patterns":
			s.URLPatterns, err = stringsValue(key, value)
		case "personal_access_token":
			s.PersonalAccessToken, err = stringValue(key, value)
		default:
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *AugmentSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := validateBaseURL(s.BaseURL); err != nil {
		return err
	}
	if s.TableSelector == "" {
		return fmt.Errorf("table_selector must not be empty")
	}
	if s.DataProvidersSelector == "" {
		return fmt.Errorf("data_providers_selector must not be empty")
	}
	if s.Timeout < 100*time.Millisecond || s.Timeout > 5*time.Minute {
		return fmt.Errorf("timeout must be between 100ms and 5m, got %v", s.Timeout)
	}
	if _, err := loadLocation(s.Timezone); err != nil {
		return err
	}
	if _, err := augment.NewMatcher(s.URLPatterns...); err != nil {
		return err
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *AugmentSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.BaseURL = devops.DefaultBaseURL
	s.TableSelector = augment.DefaultTableSelector
	s.DataProvidersSelector = devops.DataProvidersSelector
	s.SpacerSelector = render.DefaultSpacerSelector
	s.Timeout = page.DefaultTimeout
	s.Timezone = ""
	s.URLPatterns = append([]string(nil), augment.DefaultLibraryPatterns...)
	s.PersonalAccessToken = ""
}

// Snapshot returns a copy of the section's values.
func (s *AugmentSection) Snapshot() AugmentSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return AugmentSettings{
		BaseURL:               s.BaseURL,
		TableSelector:         s.TableSelector,
		DataProvidersSelector: s.DataProvidersSelector,
		SpacerSelector:        s.SpacerSelector,
		Timeout:               s.Timeout,
		Timezone:              s.Timezone,
		URLPatterns:           append([]string(nil), s.URLPatterns...),
		PersonalAccessToken:   s.PersonalAccessToken,
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute http(s) URL, got %q", raw)
	}
	return nil
}

// loadLocation maps "" and "Local" to time.Local.
func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
