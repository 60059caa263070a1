package shared

import (
	"net/rpc"

	"github.com/hashicorp/go-plugin"

	"github.com/webaudit/webaudit/pkg/shared/config"
)

// Analyzer is the interface every code analyzer plugin implements.
// Plugins run as subprocesses and are reached over net/rpc.
type Analyzer interface {
	Setup(configData config.Config) (bool, error)
	Analyze(args AnalyzerRequest) (AnalyzerResponse, error)
}

// AnalyzerRequest represents a single code analysis request.
type AnalyzerRequest struct {
	CodebasePath   string   // Path to the codebase to analyze
	ResultsPath    string   // Path to save raw analyzer output
	ConfigPath     string   // Path to the configuration file for the analyzer
	AdditionalArgs []string // Additional arguments for the analyzer
}

// RawFinding is the analyzer-native issue record before schema normalization.
type RawFinding struct {
	RuleID      string `json:"rule_id"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FilePath    string `json:"file_path"`
	Line        int    `json:"line"`
}

// AnalyzerResponse carries the raw findings produced by one analyzer run.
type AnalyzerResponse struct {
	Findings    []RawFinding
	ResultsPath string
}

type AnalyzerRPCClient struct{ client *rpc.Client }

func (g *AnalyzerRPCClient) Setup(configData config.Config) (bool, error) {
	var resp bool
	err := g.client.Call("Plugin.Setup", configData, &resp)
	if err != nil {
		return false, err
	}
	return resp, nil
}

func (g *AnalyzerRPCClient) Analyze(req AnalyzerRequest) (AnalyzerResponse, error) {
	var resp AnalyzerResponse

	err := g.client.Call("Plugin.Analyze", req, &resp)
	if err != nil {
		return resp, err
	}

	return resp, nil
}

type AnalyzerRPCServer struct {
	Impl Analyzer
}

func (s *AnalyzerRPCServer) Setup(configData config.Config, resp *bool) error {
	var err error
	*resp, err = s.Impl.Setup(configData)
	return err
}

func (s *AnalyzerRPCServer) Analyze(args AnalyzerRequest, resp *AnalyzerResponse) error {
	var err error
	*resp, err = s.Impl.Analyze(args)
	return err
}

type AnalyzerPlugin struct {
	Impl Analyzer
}

func (p *AnalyzerPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &AnalyzerRPCServer{Impl: p.Impl}, nil
}

func (AnalyzerPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &AnalyzerRPCClient{client: c}, nil
}
