package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/entrhq/vgtabs/pkg/augment"
)

// Environment variables consulted by Resolve.
const (
	EnvBaseURL     = "VGTABS_BASE_URL"
	EnvPAT         = "AZURE_DEVOPS_EXT_PAT"
	EnvTimezone    = "VGTABS_TIMEZONE"
	EnvTimeout     = "VGTABS_TIMEOUT"
	EnvHeadless    = "VGTABS_HEADLESS"
	EnvCDPEndpoint = "VGTABS_CDP_ENDPOINT"
	EnvProfileDir  = "VGTABS_PROFILE_DIR"
	EnvStartURL    = "VGTABS_START_URL"
)

// AugmentSettings is the resolved, immutable form of AugmentSection.
type AugmentSettings struct {
	BaseURL               string
	TableSelector         string
	DataProvidersSelector string
	SpacerSelector        string
	Timeout               time.Duration
	Timezone              string
	URLPatterns           []string
	PersonalAccessToken   string
}

// Location returns the time zone weekdays are rendered in.
func (a AugmentSettings) Location() (*time.Location, error) {
	return loadLocation(a.Timezone)
}

// BrowserSettings is the resolved, immutable form of BrowserSection.
type BrowserSettings struct {
	Headless    bool
	CDPEndpoint string
	ProfileDir  string
	StartURL    string
	SlowMo      time.Duration
}

// Settings is everything a command needs, after precedence is applied.
type Settings struct {
	Augment AugmentSettings
	Browser BrowserSettings
}

// Overrides carries command line values. Zero values mean "not set".
type Overrides struct {
	BaseURL     string
	PAT         string
	Timezone    string
	Timeout     time.Duration
	Headless    *bool
	CDPEndpoint string
	ProfileDir  string
	StartURL    string
	URLPatterns []string
}

// Resolve merges settings with precedence:
// CLI flags > Environment variables > Config file > Defaults.
// A nil manager means no config file, only defaults.
func Resolve(manager *Manager, o Overrides) (Settings, error) {
	augmentSection := NewAugmentSection()
	browserSection := NewBrowserSection()
	if manager != nil {
		if s, ok := manager.GetSection(SectionIDAugment); ok {
			if a, ok := s.(*AugmentSection); ok {
				augmentSection = a
			}
		}
		if s, ok := manager.GetSection(SectionIDBrowser); ok {
			if b, ok := s.(*BrowserSection); ok {
				browserSection = b
			}
		}
	}

	settings := Settings{
		Augment: augmentSection.Snapshot(),
		Browser: browserSection.Snapshot(),
	}
	a := &settings.Augment
	b := &settings.Browser

	// Environment overrides the file.
	setString(&a.BaseURL, os.Getenv(EnvBaseURL))
	setString(&a.PersonalAccessToken, os.Getenv(EnvPAT))
	setString(&a.Timezone, os.Getenv(EnvTimezone))
	setString(&b.CDPEndpoint, os.Getenv(EnvCDPEndpoint))
	setString(&b.ProfileDir, os.Getenv(EnvProfileDir))
	setString(&b.StartURL, os.Getenv(EnvStartURL))
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		a.Timeout = d
	}
	if v := os.Getenv(EnvHeadless); v != "" {
		h, err := strconv.ParseBool(v)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		b.Headless = h
	}

	// Flags override everything.
	setString(&a.BaseURL, o.BaseURL)
	setString(&a.PersonalAccessToken, o.PAT)
	setString(&a.Timezone, o.Timezone)
	setString(&b.CDPEndpoint, o.CDPEndpoint)
	setString(&b.ProfileDir, o.ProfileDir)
	setString(&b.StartURL, o.StartURL)
	if o.Timeout > 0 {
		a.Timeout = o.Timeout
	}
	if o.Headless != nil {
		b.Headless = *o.Headless
	}
	if len(o.URLPatterns) > 0 {
		a.URLPatterns = append([]string(nil), o.URLPatterns...)
	} else if slices.Equal(a.URLPatterns, augment.DefaultLibraryPatterns) {
		// Untouched defaults follow the host, so a custom base_url alone is
		// enough to watch its library pages.
		a.URLPatterns = augment.LibraryPatterns(a.BaseURL)
	}

	if err := validateBaseURL(a.BaseURL); err != nil {
		return Settings{}, err
	}
	if _, err := a.Location(); err != nil {
		return Settings{}, err
	}
	b.ProfileDir = expandHome(b.ProfileDir)

	return settings, nil
}

// DefaultProfileDir is where the persistent browser profile lives when no
// profile_dir is configured.
func DefaultProfileDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".vgtabs", "profile"), nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
