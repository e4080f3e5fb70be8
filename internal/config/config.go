// Package config loads and validates the mirror daemon configuration from a
// yaml file, applying defaults before the file overlay.
package config

import (
	"os"

	yaml "gopkg.in/yaml.v3"
)

const (
	DefaultSeparator       = ":"
	DefaultWorkers         = 4
	DefaultRetries         = 3
	DefaultMaxUploadSizeMB = 5120
	DefaultChunkSizeMB     = 256
)

// Config is the full configuration surface of the daemon.
type Config struct {
	// object store settings
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`

	// watch settings
	WatchDirs      []string `yaml:"watch_dirs"`
	Recursive      bool     `yaml:"recursive"`
	AutoAdd        bool     `yaml:"auto_add"`
	BackupExisting bool     `yaml:"backup_existing"`
	ListenEvents   []string `yaml:"listen_events"`

	// naming
	Prefix    string `yaml:"prefix"`
	Separator string `yaml:"separator"`
	Name      string `yaml:"name"`

	// indexes
	WithoutIndex bool `yaml:"without_index"`
	GlobalIndex  bool `yaml:"global_index"`

	// filtering - mutually exclusive
	Exclude string `yaml:"exclude"`
	Include string `yaml:"include"`

	// pipeline tuning
	Workers         int   `yaml:"workers"`
	Retries         int   `yaml:"retries"`
	MD5OnStart      bool  `yaml:"md5_on_start"`
	MaxUploadSizeMB int64 `yaml:"max_upload_size_mb"`
	ChunkSizeMB     int64 `yaml:"multipart_chunk_size_mb"`
}

// New returns a Config populated with the defaults. The bucket and watch
// directories have no defaults and must come from the file.
func New() *Config {
	return &Config{
		Separator:       DefaultSeparator,
		Workers:         DefaultWorkers,
		Retries:         DefaultRetries,
		MaxUploadSizeMB: DefaultMaxUploadSizeMB,
		ChunkSizeMB:     DefaultChunkSizeMB,
		ListenEvents:    []string{"create", "write"},
	}
}

// Load reads the yaml file at path over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Bucket == "" {
		return &ErrMissingOption{option: "bucket"}
	}
	if len(cfg.WatchDirs) == 0 {
		return &ErrMissingOption{option: "watch_dirs"}
	}
	if cfg.Include != "" && cfg.Exclude != "" {
		return &ErrConflictingOptions{a: "include", b: "exclude"}
	}
	if cfg.Profile != "" && (cfg.AccessKey != "" || cfg.SecretKey != "") {
		return &ErrConflictingOptions{a: "profile", b: "access_key/secret_key"}
	}
	if cfg.Workers < 1 {
		return &ErrBadValue{option: "workers", reason: "must be at least 1"}
	}
	if cfg.Retries < 1 {
		return &ErrBadValue{option: "retries", reason: "must be at least 1"}
	}
	if cfg.MaxUploadSizeMB < 1 {
		return &ErrBadValue{option: "max_upload_size_mb", reason: "must be at least 1"}
	}
	if cfg.ChunkSizeMB < 1 {
		return &ErrBadValue{option: "multipart_chunk_size_mb", reason: "must be at least 1"}
	}
	return nil
}

// HostName resolves the host-identity component of object names: the
// configured override if set, the system hostname otherwise.
func (cfg *Config) HostName() (string, error) {
	if cfg.Name != "" {
		return cfg.Name, nil
	}
	return os.Hostname()
}

// MaxUploadSize is the monolithic-upload ceiling in bytes.
func (cfg *Config) MaxUploadSize() int64 {
	return cfg.MaxUploadSizeMB * 1024 * 1024
}

// ChunkSize is the configured multipart chunk size in bytes.
func (cfg *Config) ChunkSize() int64 {
	return cfg.ChunkSizeMB * 1024 * 1024
}
