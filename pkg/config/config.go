package config

import "time"

// Render definition render_service YAML structure
type Render struct {
	Port string `mapstructure:"port"`
	IP   string `mapstructure:"ip"`

	// shared secret the render submission endpoint checks bearer tokens
	// against, injected into the middleware at construction
	AuthToken string `mapstructure:"auth_token"`

	ScratchDir        string `mapstructure:"scratch_dir"`
	MaxConcurrentJobs int64  `mapstructure:"max_concurrent_jobs"`

	// external engine binaries; empty values fall back to PATH lookup
	RendererCLI string `mapstructure:"renderer_cli"`
	FFmpegPath  string `mapstructure:"ffmpeg_path"`
	ChromePath  string `mapstructure:"chrome_path"`

	MinIO MinIOConfig `mapstructure:"minio"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`

	RetryCount    int           `mapstructure:"retry_count"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}
