package sources

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"gopkg.in/yaml.v3"
)

// Package sources contains changelog feed source configs (YAML/JSON) and page fetchers.

const (
	defaultAPIURL         = "https://api.github.com"
	defaultBase           = "master"
	defaultPerPage        = 30
	maxPerPage            = 100
	defaultSort           = "created"
	defaultDirection      = "desc"
	defaultState          = "closed"
	defaultRequestDelayMs = 0
)

// Source describes one remote changelog feed.
type Source struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Type           string `json:"type" yaml:"type"`
	APIURL         string `json:"api_url" yaml:"api_url"`
	Owner          string `json:"owner" yaml:"owner"`
	Repo           string `json:"repo" yaml:"repo"`
	Base           string `json:"base" yaml:"base"`
	Label          string `json:"label" yaml:"label"`
	PerPage        int    `json:"per_page" yaml:"per_page"`
	Sort           string `json:"sort" yaml:"sort"`
	Direction      string `json:"direction" yaml:"direction"`
	State          string `json:"state" yaml:"state"`
	TokenEnv       string `json:"token_env" yaml:"token_env"`
	RequestDelayMs int    `json:"request_delay_ms" yaml:"request_delay_ms"`
}

type registryFile struct {
	Sources []Source `json:"sources" yaml:"sources"`
}

// Registry holds the sources loaded from a config file.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	idx     map[string]Source
}

// LoadRegistry loads the source registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Sources...)
}

// NewRegistry validates sources and indexes them by id.
func NewRegistry(srcs ...Source) (*Registry, error) {
	if len(srcs) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Registry{
		sources: make([]Source, len(srcs)),
		idx:     make(map[string]Source, len(srcs)),
	}
	for i := range srcs {
		s := sanitizeSource(srcs[i])
		if err := validateSource(s); err != nil {
			return nil, fmt.Errorf("source[%d]: %w", i, err)
		}
		if _, exists := reg.idx[s.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		reg.sources[i] = s
		reg.idx[s.ID] = s
	}
	return reg, nil
}

// All returns a copy of the configured sources in file order.
func (r *Registry) All() []Source {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// ByID returns the source with the given id.
func (r *Registry) ByID(id string) (Source, bool) {
	if r == nil {
		return Source{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Source{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.idx[id]
	return s, ok
}

func parseRegistry(data []byte, ext string) (registryFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return registryFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (registryFile, error) {
	var reg registryFile
	if err := fn(data, &reg); err != nil {
		return registryFile{}, fmt.Errorf("decode %s sources: %w", name, err)
	}
	return reg, nil
}

func sanitizeSource(s Source) Source {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Type = strings.ToLower(strings.TrimSpace(s.Type))
	s.APIURL = strings.TrimRight(strings.TrimSpace(s.APIURL), "/")
	s.Owner = strings.TrimSpace(s.Owner)
	s.Repo = strings.TrimSpace(s.Repo)
	s.Base = strings.TrimSpace(s.Base)
	s.Sort = strings.TrimSpace(s.Sort)
	s.Direction = strings.TrimSpace(s.Direction)
	s.State = strings.TrimSpace(s.State)
	s.TokenEnv = strings.TrimSpace(s.TokenEnv)

	if s.Type == "" {
		s.Type = TypeGitHubPulls
	}
	if s.Name == "" {
		s.Name = s.ID
	}
	if s.APIURL == "" {
		s.APIURL = defaultAPIURL
	}
	if s.Base == "" {
		s.Base = defaultBase
	}
	// The label is matched verbatim, so only an absent one is defaulted.
	if s.Label == "" {
		s.Label = changelog.DefaultInclusionLabel
	}
	if s.PerPage <= 0 {
		s.PerPage = defaultPerPage
	}
	if s.PerPage > maxPerPage {
		s.PerPage = maxPerPage
	}
	if s.Sort == "" {
		s.Sort = defaultSort
	}
	if s.Direction == "" {
		s.Direction = defaultDirection
	}
	if s.State == "" {
		s.State = defaultState
	}
	if s.RequestDelayMs < 0 {
		s.RequestDelayMs = defaultRequestDelayMs
	}
	return s
}

func validateSource(s Source) error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.Owner == "" {
		return fmt.Errorf("owner is required for source %q", s.ID)
	}
	if s.Repo == "" {
		return fmt.Errorf("repo is required for source %q", s.ID)
	}
	return nil
}

// RequestDelay returns the minimum spacing between page requests for the source.
func (s Source) RequestDelay() time.Duration {
	if s.RequestDelayMs <= 0 {
		return 0
	}
	return time.Duration(s.RequestDelayMs) * time.Millisecond
}

// PullsURL returns the list endpoint for the source repository.
func (s Source) PullsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/pulls", s.APIURL, s.Owner, s.Repo)
}
