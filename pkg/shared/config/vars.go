package config

import (
	"time"
)

// Config is the root YAML configuration for webaudit.
type Config struct {
	Webaudit   Webaudit   `yaml:"webaudit"`
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
	Audit      Audit      `yaml:"audit"`
}

// Webaudit holds application-level folder settings.
type Webaudit struct {
	HomeFolder    string `yaml:"home_folder"`
	PluginsFolder string `yaml:"plugins_folder"`
	AuditsFolder  string `yaml:"audits_folder"`
	TempFolder    string `yaml:"temp_folder"`
	Mode          string `yaml:"mode"`
}

// Logger holds settings for the hclog logger.
type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

// HTTPClient holds settings for outbound HTTP probing.
type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

// TLSClientConfig holds TLS verification settings.
type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

// Proxy holds outbound proxy settings.
type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Audit holds per-stage limits applied to every audit run.
type Audit struct {
	StageTimeout time.Duration `yaml:"stage_timeout"`
	MaxPages     int           `yaml:"max_pages"`
	MaxForms     int           `yaml:"max_forms"`
	Parallel     *bool         `yaml:"parallel"`
	Analyzers    []string      `yaml:"analyzers"`
}
