package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/limacina/launcher/internal/initseq"
	"github.com/limacina/launcher/internal/server"
)

// Defaults applied by Validate.
const (
	DefaultVersion        = "1.0"
	DefaultRequestTimeout = "30s"
	DefaultFloorDelay     = "200ms"
	DefaultStoreBackend   = "file"
	DefaultNamespace      = "default"
	DefaultServeAddr      = "127.0.0.1:8765"
	DefaultSyncDir        = "limacina"
	DefaultSyncWorkers    = 4
	DefaultSyncTimeout    = "10m"
)

// LimacinaConfig represents the top-level limacina.yml configuration
type LimacinaConfig struct {
	Version        string              `yaml:"version"`
	BackendURL     string              `yaml:"backend_url,omitempty"`
	Server         ServerConfig        `yaml:"server"`
	Servers        []server.Descriptor `yaml:"servers,omitempty"` // Extra descriptors after the primary one
	StatusEndpoint string              `yaml:"status_endpoint,omitempty"`
	RequestTimeout string              `yaml:"request_timeout,omitempty"`
	Init           *InitConfig         `yaml:"init,omitempty"`
	Store          *StoreConfig        `yaml:"store,omitempty"`
	Serve          *ServeConfig        `yaml:"serve,omitempty"`
	Sync           *SyncConfig         `yaml:"sync,omitempty"`

	requestTimeout time.Duration
}

// ServerConfig is the primary server descriptor, usually filled from the
// environment.
type ServerConfig struct {
	Name        string `yaml:"name,omitempty"`
	URLLauncher string `yaml:"url_launcher,omitempty"`
	URLStatus   string `yaml:"url_status,omitempty"`
}

// InitConfig tunes the initialization sequence.
type InitConfig struct {
	FloorDelay string `yaml:"floor_delay,omitempty"`
	JoinMode   string `yaml:"join_mode,omitempty"` // "fail-fast" (default) or "best-effort"

	floorDelay time.Duration
	joinMode   initseq.JoinMode
}

// StoreConfig selects the key-value persistence backend.
type StoreConfig struct {
	Backend   string `yaml:"backend,omitempty"`   // "file" or "redis"
	Dir       string `yaml:"dir,omitempty"`       // file backend; empty means <home>/.limacina/store
	RedisURL  string `yaml:"redis_url,omitempty"` // redis backend
	Namespace string `yaml:"namespace,omitempty"`
}

// ServeConfig configures the local state server.
type ServeConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// SyncConfig configures game file synchronization.
type SyncConfig struct {
	Dir     string `yaml:"dir,omitempty"`     // relative to the home directory unless absolute
	Workers int    `yaml:"workers,omitempty"` // concurrent downloads
	Timeout string `yaml:"timeout,omitempty"` // bound on a single download

	timeout time.Duration
}

// Default returns a configuration with every default applied.
func Default() *LimacinaConfig {
	cfg := &LimacinaConfig{}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate applies defaults and performs strict validation.
func (c *LimacinaConfig) Validate() error {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Version != DefaultVersion {
		return fmt.Errorf("unsupported version: %s (expected: %s)", c.Version, DefaultVersion)
	}

	if c.BackendURL != "" {
		if err := validateHTTPURL(c.BackendURL); err != nil {
			return fmt.Errorf("backend_url: %w", err)
		}
	}

	if c.StatusEndpoint == "" {
		c.StatusEndpoint = server.DefaultStatusEndpoint
	}
	if err := validateHTTPURL(c.StatusEndpoint); err != nil {
		return fmt.Errorf("status_endpoint: %w", err)
	}

	if c.RequestTimeout == "" {
		c.RequestTimeout = DefaultRequestTimeout
	}
	timeout, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return fmt.Errorf("invalid request_timeout '%s': %w", c.RequestTimeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	c.requestTimeout = timeout

	if err := c.validateServers(); err != nil {
		return err
	}

	if c.Init == nil {
		c.Init = &InitConfig{}
	}
	if err := c.Init.validate(); err != nil {
		return err
	}

	if c.Store == nil {
		c.Store = &StoreConfig{}
	}
	if err := c.Store.validate(); err != nil {
		return err
	}

	if c.Serve == nil {
		c.Serve = &ServeConfig{}
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = DefaultServeAddr
	}

	if c.Sync == nil {
		c.Sync = &SyncConfig{}
	}
	if err := c.Sync.validate(); err != nil {
		return err
	}

	return nil
}

// validateServers checks that every descriptor is complete and that names
// are unique across the primary server and the extra list.
func (c *LimacinaConfig) validateServers() error {
	seen := make(map[string]bool)
	if c.Server.Name != "" {
		seen[c.Server.Name] = true
	}
	for i, d := range c.Servers {
		if d.Name == "" {
			return fmt.Errorf("servers[%d]: name is required", i)
		}
		if d.URLStatus == "" {
			return fmt.Errorf("server '%s': url_status is required", d.Name)
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate server name '%s'", d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}

func (i *InitConfig) validate() error {
	if i.FloorDelay == "" {
		i.FloorDelay = DefaultFloorDelay
	}
	d, err := time.ParseDuration(i.FloorDelay)
	if err != nil {
		return fmt.Errorf("invalid init.floor_delay '%s': %w", i.FloorDelay, err)
	}
	if d < 0 {
		return fmt.Errorf("init.floor_delay must be >= 0, got %s", i.FloorDelay)
	}
	i.floorDelay = d

	mode, err := initseq.ParseJoinMode(i.JoinMode)
	if err != nil {
		return fmt.Errorf("init.join_mode: %w", err)
	}
	i.JoinMode = string(mode)
	i.joinMode = mode
	return nil
}

func (s *StoreConfig) validate() error {
	if s.Backend == "" {
		s.Backend = DefaultStoreBackend
	}
	if s.Namespace == "" {
		s.Namespace = DefaultNamespace
	}
	switch s.Backend {
	case "file":
	case "redis":
		if s.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required when store.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid store.backend: %s (must be 'file' or 'redis')", s.Backend)
	}
	return nil
}

func (s *SyncConfig) validate() error {
	if s.Dir == "" {
		s.Dir = DefaultSyncDir
	}
	if s.Workers == 0 {
		s.Workers = DefaultSyncWorkers
	}
	if s.Workers < 0 {
		return fmt.Errorf("sync.workers must be positive, got %d", s.Workers)
	}
	if s.Timeout == "" {
		s.Timeout = DefaultSyncTimeout
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return fmt.Errorf("invalid sync.timeout '%s': %w", s.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("sync.timeout must be positive, got %s", s.Timeout)
	}
	s.timeout = d
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// RequestTimeoutDuration returns the parsed request_timeout.
func (c *LimacinaConfig) RequestTimeoutDuration() time.Duration {
	return c.requestTimeout
}

// FloorDelayDuration returns the parsed init.floor_delay.
func (c *LimacinaConfig) FloorDelayDuration() time.Duration {
	return c.Init.floorDelay
}

// JoinMode returns the parsed init.join_mode.
func (c *LimacinaConfig) JoinMode() initseq.JoinMode {
	return c.Init.joinMode
}

// SyncTimeoutDuration returns the parsed sync.timeout.
func (c *LimacinaConfig) SyncTimeoutDuration() time.Duration {
	return c.Sync.timeout
}

// SyncRoot returns the sync directory for home. An absolute sync.dir is
// returned as is.
func (c *LimacinaConfig) SyncRoot(home string) string {
	if filepath.IsAbs(c.Sync.Dir) {
		return c.Sync.Dir
	}
	return filepath.Join(home, c.Sync.Dir)
}

// APIBaseURL returns the request wrapper's base URL, <backend_url>/api.
func (c *LimacinaConfig) APIBaseURL() string {
	if c.BackendURL == "" {
		return ""
	}
	return strings.TrimRight(c.BackendURL, "/") + "/api"
}

// Descriptors returns the server list: the primary server first (if named),
// then the extra servers in file order.
func (c *LimacinaConfig) Descriptors() []server.Descriptor {
	var list []server.Descriptor
	if c.Server.Name != "" {
		list = append(list, server.Descriptor{
			Name:        c.Server.Name,
			URLLauncher: c.Server.URLLauncher,
			URLStatus:   c.Server.URLStatus,
		})
	}
	return append(list, c.Servers...)
}

// Load reads limacina.yml from path, overlays the environment and validates.
func Load(path string) (*LimacinaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config LimacinaConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOptional is Load, except that a missing file yields the defaults plus
// the environment.
func LoadOptional(path string) (*LimacinaConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		config := &LimacinaConfig{}
		config.ApplyEnv(os.LookupEnv)
		if err := config.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return config, nil
	}
	return Load(path)
}

// LoadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error; the boolean reports whether a file was read.
func LoadEnvFile(path string) (bool, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return true, nil
}
