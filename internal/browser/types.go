// Package browser declares the structured outputs of the external browser
// automation backend. The backend itself (navigation, screenshotting, DOM
// inspection) lives outside this module; stages consume these records from
// the audit input directory or receive them injected in-process.
package browser

// PageData describes one explored page.
type PageData struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	StatusCode    int      `json:"status_code"`
	VisibleText   string   `json:"visible_text"`
	FormCount     int      `json:"form_count"`
	LinkCount     int      `json:"link_count"`
	Screenshots   []string `json:"screenshots,omitempty"`
	ConsoleErrors []string `json:"console_errors,omitempty"`
}

// Diagnostic categories reported by the browser backend.
const (
	DiagRenderError     = "render-error"
	DiagJSError         = "js-error"
	DiagAPIFailure      = "api-failure"
	DiagLoadingStuck    = "loading-stuck"
	DiagAuthFailure     = "auth-failure"
	DiagMissingResource = "missing-resource"
	DiagCORSError       = "cors-error"
	DiagWebsocketError  = "websocket-error"
	DiagSlowRequest     = "slow-request"
	DiagMixedContent    = "mixed-content"
)

// DiagnosticReport is one diagnosed problem on a page.
type DiagnosticReport struct {
	Category    string   `json:"category"`
	Severity    string   `json:"severity"` // error | warning | info
	Message     string   `json:"message"`
	URL         string   `json:"url"`
	Detail      string   `json:"detail,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
}

// NetworkFailure summarizes a failed request observed during an interaction.
type NetworkFailure struct {
	Method string `json:"method"`
	URL    string `json:"url"`
	Status int    `json:"status"`
}

// InteractionResult describes one attempted form or control interaction.
type InteractionResult struct {
	PageURL         string           `json:"page_url"`
	Description     string           `json:"description"`
	Selector        string           `json:"selector,omitempty"`
	ErrorObserved   bool             `json:"error_observed"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	ConsoleErrors   []string         `json:"console_errors,omitempty"`
	NetworkFailures []NetworkFailure `json:"network_failures,omitempty"`
	Screenshots     []string         `json:"screenshots,omitempty"`
}

// ViewportResult is one responsive-layout issue reported by the sub-analyzer,
// severity already assigned.
type ViewportResult struct {
	PageURL     string   `json:"page_url"`
	Viewport    string   `json:"viewport"` // e.g. 375x667
	Issue       string   `json:"issue"`
	Severity    string   `json:"severity"`
	Selector    string   `json:"selector,omitempty"`
	Screenshots []string `json:"screenshots,omitempty"`
}

// EndpointResult is one api-smoke probe outcome, severity already assigned
// by the sub-analyzer.
type EndpointResult struct {
	Method   string `json:"method"`
	URL      string `json:"url"`
	Status   int    `json:"status"`
	Issue    string `json:"issue"`
	Severity string `json:"severity"`
	Body     string `json:"body,omitempty"`
}
