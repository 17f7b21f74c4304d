package config

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

const (
	// SectionIDBrowser is the identifier for the browser settings section
	SectionIDBrowser = "browser"

	defaultHeadless = false
	maxSlowMo       = 5 * time.Second
)

// BrowserSection configures how the live browser is started or attached to.
type BrowserSection struct {
	Headless    bool          `json:"headless"`
	CDPEndpoint string        `json:"cdp_endpoint"`
	ProfileDir  string        `json:"profile_dir"`
	StartURL    string        `json:"start_url"`
	SlowMo      time.Duration `json:"slow_mo"`
	mu          sync.RWMutex
}

// NewBrowserSection creates a new browser section with default settings.
func NewBrowserSection() *BrowserSection {
	s := &BrowserSection{}
	s.Reset()
	return s
}

// ID returns the section identifier.
func (s *BrowserSection) ID() string {
	return SectionIDBrowser
}

// Title returns the section title.
func (s *BrowserSection) Title() string {
	return "Browser"
}

// Description returns the section description.
func (s *BrowserSection) Description() string {
	return "Configure the Chromium session: headless mode, profile directory, or an existing Chrome to attach to."
}

// Data returns the current configuration data.
func (s *BrowserSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"headless":     s.Headless,
		"cdp_endpoint": s.CDPEndpoint,
		"profile_dir":  s.ProfileDir,
		"start_url":    s.StartURL,
		"slow_mo":      s.SlowMo.String(),
	}
}

// SetData updates the configuration from the provided data.
func (s *BrowserSection) SetData(data map[string]interface{}) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		var err error
		switch key {
		case "headless":
			s.Headless, err = boolValue(key, value)
		case "cdp_endpoint":
			s.CDPEndpoint, err = stringValue(key, value)
		case "profile_dir":
			s.ProfileDir, err = stringValue(key, value)
		case "start_url":
			s.StartURL, err = stringValue(key, value)
		case "slow_mo":
			s.SlowMo, err = durationValue(key, value)
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
func (s *BrowserSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.CDPEndpoint != "" {
		u, err := url.Parse(s.CDPEndpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("cdp_endpoint must be a URL such as http://localhost:9222, got %q", s.CDPEndpoint)
		}
	}
	if s.StartURL != "" {
		if u, err := url.Parse(s.StartURL); err != nil || !u.IsAbs() {
			return fmt.Errorf("start_url must be an absolute URL, got %q", s.StartURL)
		}
	}
	if s.SlowMo < 0 || s.SlowMo > maxSlowMo {
		return fmt.Errorf("slow_mo must be between 0 and %v, got %v", maxSlowMo, s.SlowMo)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *BrowserSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Headless = defaultHeadless
	s.CDPEndpoint = ""
	s.ProfileDir = ""
	s.StartURL = ""
	s.SlowMo = 0
}

// Snapshot returns a copy of the section's values.
func (s *BrowserSection) Snapshot() BrowserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return BrowserSettings{
		Headless:    s.Headless,
		CDPEndpoint: s.CDPEndpoint,
		ProfileDir:  s.ProfileDir,
		StartURL:    s.StartURL,
		SlowMo:      s.SlowMo,
	}
}
