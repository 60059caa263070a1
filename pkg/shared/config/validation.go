package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/webaudit/webaudit/pkg/shared/files"
)

// ValidateConfig checks if the global configuration has valid values and
// fills in environment-driven defaults.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateWebauditConfig(cfg); err != nil {
		return fmt.Errorf("YAML global config: webaudit directive is invalid: %w", err)
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := ValidateAuditConfig(&cfg.Audit); err != nil {
		return fmt.Errorf("YAML global config: audit directive is invalid: %w", err)
	}
	return nil
}

// ValidateWebauditConfig resolves the home and working folders, creating them when absent.
func ValidateWebauditConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("webaudit configuration is nil")
	}
	if err := updateHome(cfg); err != nil {
		return fmt.Errorf("failed to update home folder: %w", err)
	}
	if err := updateFolder(&cfg.Webaudit.PluginsFolder, "WEBAUDIT_PLUGINS_FOLDER", "plugins", cfg); err != nil {
		return fmt.Errorf("failed to update plugins folder: %w", err)
	}
	if err := updateFolder(&cfg.Webaudit.AuditsFolder, "WEBAUDIT_AUDITS_FOLDER", "audits", cfg); err != nil {
		return fmt.Errorf("failed to update audits folder: %w", err)
	}
	if err := updateFolder(&cfg.Webaudit.TempFolder, "WEBAUDIT_TEMP_FOLDER", "tmp", cfg); err != nil {
		return fmt.Errorf("failed to update temp folder: %w", err)
	}
	updateMode(cfg)

	return nil
}

// ValidateHTTPConfig checks if the HTTP configuration has valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"RetryMaxWaitTime": httpConfig.RetryMaxWaitTime,
		"RetryWaitTime":    httpConfig.RetryWaitTime,
		"Timeout":          httpConfig.Timeout,
	}
	for name, duration := range durations {
		if err := validateDuration(duration, name, 100*time.Second); err != nil {
			return err
		}
	}

	if err := validateProxy(&httpConfig.Proxy); err != nil {
		return err
	}

	return nil
}

// ValidateAuditConfig checks the per-stage limits and fills defaults for unset fields.
func ValidateAuditConfig(auditConfig *Audit) error {
	if auditConfig == nil {
		return fmt.Errorf("audit configuration is nil")
	}
	defaults := DefaultAuditConfig()
	auditConfig.StageTimeout = SetThen(auditConfig.StageTimeout, defaults.StageTimeout)
	auditConfig.MaxPages = SetThen(auditConfig.MaxPages, defaults.MaxPages)
	auditConfig.MaxForms = SetThen(auditConfig.MaxForms, defaults.MaxForms)
	if len(auditConfig.Analyzers) == 0 {
		auditConfig.Analyzers = defaults.Analyzers
	}

	if err := validateDuration(auditConfig.StageTimeout, "stage_timeout", 2*time.Hour); err != nil {
		return err
	}
	if auditConfig.MaxPages < 1 {
		return fmt.Errorf("max_pages must be positive: %d", auditConfig.MaxPages)
	}
	if auditConfig.MaxForms < 1 {
		return fmt.Errorf("max_forms must be positive: %d", auditConfig.MaxForms)
	}
	return nil
}

// validateDuration checks that a time.Duration is valid and within a specified maximum duration.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %q: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%q duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

// validateProxy checks if the given Proxy settings are valid.
func validateProxy(proxy *Proxy) error {
	if proxy == nil {
		return fmt.Errorf("proxy configuration is nil")
	}

	// If host or port is not set, skip further validation
	if proxy.Host == "" || proxy.Port == 0 {
		return nil
	}

	if err := validateHost(&proxy.Host); err != nil {
		return err
	}

	if err := validatePort(proxy.Port); err != nil {
		return err
	}

	return nil
}

// validateHost ensures the proxy host includes a scheme; adds "http" if missing.
func validateHost(host *string) error {
	if host == nil {
		return fmt.Errorf("host string pointer is nil")
	}

	if !strings.Contains(*host, "://") {
		*host = "http://" + *host
	}
	*host = strings.TrimRight(*host, "/")

	_, err := url.Parse(*host)
	if err != nil {
		return fmt.Errorf("invalid host URL: %w", err)
	}

	return nil
}

// validatePort checks if the port part of the proxy configuration is valid.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// updateHome resolves the home folder from the environment or sets a default value.
func updateHome(cfg *Config) error {
	if homeFolder := os.Getenv("WEBAUDIT_HOME"); homeFolder != "" {
		cfg.Webaudit.HomeFolder = homeFolder
	} else if cfg.Webaudit.HomeFolder == "" {
		homeFolder, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("unable to get user home folder: %w", err)
		}
		cfg.Webaudit.HomeFolder = filepath.Join(homeFolder, ".webaudit")
	}

	expandedHomePath, err := files.ExpandPath(cfg.Webaudit.HomeFolder)
	if err != nil {
		return fmt.Errorf("failed to expand new home path %q: %w", cfg.Webaudit.HomeFolder, err)
	}
	cfg.Webaudit.HomeFolder = expandedHomePath

	if err := files.CreateFolderIfNotExists(expandedHomePath); err != nil {
		return fmt.Errorf("failed to create home folder %q: %w", cfg.Webaudit.HomeFolder, err)
	}
	return nil
}

// updateFolder resolves one working folder from the environment or the home folder default.
func updateFolder(folder *string, envVar, defaultSubFolder string, cfg *Config) error {
	if envVarValue := os.Getenv(envVar); envVarValue != "" {
		*folder = envVarValue
	} else if *folder == "" {
		*folder = filepath.Join(GetWebauditHome(cfg), defaultSubFolder)
	}

	expandedPath, err := files.ExpandPath(*folder)
	if err != nil {
		return fmt.Errorf("failed to expand path %q: %w", *folder, err)
	}
	*folder = expandedPath

	if err := files.CreateFolderIfNotExists(expandedPath); err != nil {
		return fmt.Errorf("failed to create folder %q: %w", expandedPath, err)
	}
	return nil
}

// updateMode sets the execution mode based on environment variables.
func updateMode(cfg *Config) {
	if os.Getenv("WEBAUDIT_MODE") == "CI" || os.Getenv("CI") == "true" {
		cfg.Webaudit.Mode = "CI"
		return
	}

	if envVarValue := os.Getenv("WEBAUDIT_MODE"); envVarValue != "" {
		cfg.Webaudit.Mode = envVarValue
		return
	}

	cfg.Webaudit.Mode = "user"
}

// GetWebauditHome returns the resolved application home folder.
func GetWebauditHome(cfg *Config) string {
	return cfg.Webaudit.HomeFolder
}

// GetWebauditPluginsHome returns the resolved analyzer plugins folder.
func GetWebauditPluginsHome(cfg *Config) string {
	return cfg.Webaudit.PluginsFolder
}

// GetWebauditAuditsHome returns the folder where audit run directories are created.
func GetWebauditAuditsHome(cfg *Config) string {
	return cfg.Webaudit.AuditsFolder
}

// IsCI reports whether webaudit runs in CI mode.
func IsCI(cfg *Config) bool {
	return cfg.Webaudit.Mode == "CI"
}
