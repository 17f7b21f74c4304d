package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileVersion = "1.0"

// Store provides persistence for configuration data.
type Store interface {
	// Load reads the configuration from its backing storage
	Load() error

	// Save writes the configuration to its backing storage
	Save() error

	// GetSection returns a copy of one section's values
	GetSection(sectionID string) (map[string]interface{}, error)

	// SetSection replaces one section's values
	SetSection(sectionID string, data map[string]interface{}) error

	// GetAll returns a copy of every section
	GetAll() (map[string]map[string]interface{}, error)

	// SetAll replaces every section
	SetAll(data map[string]map[string]interface{}) error
}

// fileFormat is the on-disk layout shared by the JSON and YAML encodings.
type fileFormat struct {
	Version  string                            `json:"version" yaml:"version"`
	Sections map[string]map[string]interface{} `json:"sections" yaml:"sections"`
}

// codec reads and writes fileFormat in one encoding.
type codec interface {
	decode(r io.Reader, v *fileFormat) error
	encode(w io.Writer, v fileFormat) error
}

type jsonCodec struct{}

func (jsonCodec) decode(r io.Reader, v *fileFormat) error {
	return json.NewDecoder(r).Decode(v)
}

func (jsonCodec) encode(w io.Writer, v fileFormat) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type yamlCodec struct{}

func (yamlCodec) decode(r io.Reader, v *fileFormat) error {
	return yaml.NewDecoder(r).Decode(v)
}

func (yamlCodec) encode(w io.Writer, v fileFormat) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// codecFor picks YAML for .yaml and .yml paths and JSON for everything else.
func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}
	default:
		return jsonCodec{}
	}
}

// FileStore keeps the settings in a single JSON or YAML file.
type FileStore struct {
	path     string
	codec    codec
	mu       sync.RWMutex
	data     map[string]map[string]interface{}
	version  string
	modified bool
}

// NewFileStore opens the store at path, or at DefaultPath when path is
// empty. A missing file is not an error.
func NewFileStore(path string) (*FileStore, error) {
	store, err := openFileStore(path)
	if err != nil {
		return nil, err
	}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", store.path, err)
	}
	return store, nil
}

// openFileStore returns an empty store bound to path without reading it.
func openFileStore(path string) (*FileStore, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	return &FileStore{
		path:    path,
		codec:   codecFor(path),
		data:    map[string]map[string]interface{}{},
		version: fileVersion,
	}, nil
}

// DefaultPath returns ~/.vgtabs/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".vgtabs", "config.json"), nil
}

// Load replaces the in-memory sections with the file's contents. A missing
// or empty file loads as an empty configuration.
func (s *FileStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.data = map[string]map[string]interface{}{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var contents fileFormat
	if err := s.codec.decode(file, &contents); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	if contents.Version != "" {
		s.version = contents.Version
	}
	s.data = contents.Sections
	if s.data == nil {
		s.data = map[string]map[string]interface{}{}
	}
	s.modified = false
	return nil
}

// Save writes the sections to a temporary file and renames it over the
// target. The file is private to the user since it may hold an access token.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	contents := fileFormat{Version: s.version, Sections: s.data}
	if err := writeAtomic(s.path, func(w io.Writer) error {
		return s.codec.encode(w, contents)
	}); err != nil {
		return err
	}

	s.modified = false
	return nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// GetSection returns a copy of the section, or an empty map if it is absent.
func (s *FileStore) GetSection(sectionID string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSection(s.data[sectionID]), nil
}

// SetSection stores a copy of data under sectionID.
func (s *FileStore) SetSection(sectionID string, data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sectionID] = cloneSection(data)
	s.modified = true
	return nil
}

// GetAll returns a deep copy of every section.
func (s *FileStore) GetAll() (map[string]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSections(s.data), nil
}

// SetAll replaces every section with a deep copy of data.
func (s *FileStore) SetAll(data map[string]map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = cloneSections(data)
	s.modified = true
	return nil
}

// IsModified reports whether there are unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string {
	return s.path
}

func cloneSection(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneSections(src map[string]map[string]interface{}) map[string]map[string]interface{} {
	dst := make(map[string]map[string]interface{}, len(src))
	for id, section := range src {
		dst[id] = cloneSection(section)
	}
	return dst
}
