package shared

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-plugin"

	"github.com/webaudit/webaudit/pkg/shared/config"
	"github.com/webaudit/webaudit/pkg/shared/logger"
)

const (
	PluginTypeAnalyzer string = "analyzer"
)

// HandshakeConfig is the handshake between the webaudit core and analyzer plugins.
// It is a UX feature preventing users from executing arbitrary binaries as plugins,
// not a security feature.
var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "WEBAUDIT",
	MagicCookieValue: "1f6c9d2c55e94b3a8ff30dd1a2fb1d3f8f1b1a70",
}

// PluginMap is the map of plugin types the core can dispense.
var PluginMap = map[string]plugin.Plugin{
	PluginTypeAnalyzer: &AnalyzerPlugin{},
}

// Versions holds build-time version information for the core binary.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
}

// WithPlugin launches the named plugin binary from the plugins folder,
// dispenses an instance of pluginType over RPC and hands it to f.
// The plugin subprocess is always killed before returning.
func WithPlugin(cfg *config.Config, loggerName string, pluginType string, pluginName string, f func(interface{}) error) error {
	pluginLogger := logger.NewLogger(cfg, loggerName)

	pluginPath := filepath.Join(config.GetWebauditPluginsHome(cfg), pluginName)
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(pluginPath),
		Logger:          pluginLogger,
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return fmt.Errorf("failed to start plugin %q: %w", pluginName, err)
	}

	raw, err := rpcClient.Dispense(pluginType)
	if err != nil {
		return fmt.Errorf("failed to dispense plugin %q: %w", pluginName, err)
	}

	if err := f(raw); err != nil {
		return err
	}

	return nil
}

// ForEveryWithBoundedGoroutines runs f over values with at most limit goroutines in flight.
func ForEveryWithBoundedGoroutines(limit int, values []interface{}, f func(i int, value interface{})) {
	guard := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, value := range values {
		guard <- struct{}{} // would block if guard channel is already filled
		wg.Add(1)
		go func(i int, value interface{}) {
			defer wg.Done()
			f(i, value)
			<-guard
		}(i, value)
	}
	wg.Wait()
}
