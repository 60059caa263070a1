package browser

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"
)

// Prober performs lightweight HTTP checks against the audit target. It backs
// the preflight reachability check and the verify stage's re-probing.
type Prober struct {
	client *resty.Client
	logger hclog.Logger
}

// NewProber wraps a configured resty client.
func NewProber(client *resty.Client, logger hclog.Logger) *Prober {
	return &Prober{client: client, logger: logger}
}

// ProbeResult is the outcome of a single HTTP probe.
type ProbeResult struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Latency    time.Duration `json:"latency"`
}

// Probe issues a GET against url and reports status and latency. Transport
// errors are returned with the underlying message preserved for diagnosis.
func (p *Prober) Probe(url string) (ProbeResult, error) {
	start := time.Now()
	resp, err := p.client.R().Get(url)
	if err != nil {
		return ProbeResult{URL: url}, fmt.Errorf("target %q is unreachable: %w", url, err)
	}

	result := ProbeResult{
		URL:        url,
		StatusCode: resp.StatusCode(),
		Latency:    time.Since(start),
	}
	p.logger.Debug("probed target", "url", url, "status", result.StatusCode, "latency", result.Latency)
	return result, nil
}

// Reproduces checks whether a previously recorded status is still observed at
// url. Used by the verify stage to confirm or retire findings.
func (p *Prober) Reproduces(url string, wantStatus int) (bool, error) {
	result, err := p.Probe(url)
	if err != nil {
		return false, err
	}
	return result.StatusCode == wantStatus, nil
}
