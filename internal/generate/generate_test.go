package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webaudit/webaudit/internal/browser"
	"github.com/webaudit/webaudit/internal/findings"
)

func newGenerator() *Generator {
	return New(findings.NewFactory())
}

func TestFromPageServerError(t *testing.T) {
	g := newGenerator()

	out, err := g.FromPage(browser.PageData{URL: "https://app.example.com/api", StatusCode: 500})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityP0, out[0].Severity)
	assert.Equal(t, "exploration", out[0].Source)
	assert.Contains(t, out[0].Reproduction, "observe status code 500")

	// One below the boundary produces nothing.
	out, err = g.FromPage(browser.PageData{URL: "https://app.example.com/api", StatusCode: 499, VisibleText: longText(), FormCount: 2, LinkCount: 5})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFromPageLoadingPattern(t *testing.T) {
	g := newGenerator()

	out, err := g.FromPage(browser.PageData{
		URL:         "https://app.example.com/dashboard",
		StatusCode:  200,
		VisibleText: "Please wait while we load your dashboard " + longText(),
		FormCount:   1,
		LinkCount:   4,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityP1, out[0].Severity)
}

func TestFromPageEmptyPage(t *testing.T) {
	g := newGenerator()

	out, err := g.FromPage(browser.PageData{
		URL:         "https://app.example.com/settings",
		StatusCode:  200,
		VisibleText: "Settings",
		FormCount:   0,
		LinkCount:   1,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityP2, out[0].Severity)
	assert.Equal(t, findings.TypeUI, out[0].Type)

	// A page with two links is not considered empty.
	out, err = g.FromPage(browser.PageData{
		URL:         "https://app.example.com/settings",
		StatusCode:  200,
		VisibleText: "Settings",
		FormCount:   0,
		LinkCount:   2,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFromDiagnosticsSeverityTable(t *testing.T) {
	cases := []struct {
		category string
		severity string
		want     findings.Severity
		emitted  bool
	}{
		{browser.DiagRenderError, "error", findings.SeverityP0, true},
		{browser.DiagJSError, "error", findings.SeverityP1, true},
		{browser.DiagJSError, "warning", findings.SeverityP2, true},
		{browser.DiagAPIFailure, "error", findings.SeverityP1, true},
		{browser.DiagAPIFailure, "warning", findings.SeverityP2, true},
		{browser.DiagLoadingStuck, "error", findings.SeverityP1, true},
		{browser.DiagAuthFailure, "warning", findings.SeverityP1, true},
		{browser.DiagMissingResource, "error", findings.SeverityP2, true},
		{browser.DiagCORSError, "error", findings.SeverityP2, true},
		{browser.DiagWebsocketError, "warning", findings.SeverityP2, true},
		{browser.DiagSlowRequest, "warning", findings.SeverityP3, true},
		{browser.DiagMixedContent, "warning", findings.SeverityP3, true},
		{browser.DiagRenderError, "info", "", false},
		{"something-new", "error", "", false},
	}

	for _, tc := range cases {
		g := newGenerator()
		out, err := g.FromDiagnostics([]browser.DiagnosticReport{{
			Category: tc.category,
			Severity: tc.severity,
			Message:  "diagnosed " + tc.category,
			URL:      "https://app.example.com/page",
		}})
		require.NoError(t, err, "category %s", tc.category)
		if !tc.emitted {
			assert.Empty(t, out, "category %s severity %s", tc.category, tc.severity)
			continue
		}
		require.Len(t, out, 1, "category %s", tc.category)
		assert.Equal(t, tc.want, out[0].Severity, "category %s severity %s", tc.category, tc.severity)
	}
}

func TestFromInteraction(t *testing.T) {
	g := newGenerator()

	// No error, no finding.
	out, err := g.FromInteraction(browser.InteractionResult{PageURL: "https://a", Description: "submit login"})
	require.NoError(t, err)
	assert.Empty(t, out)

	// Error with console signal is P1.
	out, err = g.FromInteraction(browser.InteractionResult{
		PageURL:       "https://a",
		Description:   "submit login",
		ErrorObserved: true,
		ConsoleErrors: []string{"TypeError: undefined is not a function"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityP1, out[0].Severity)

	// Error with a 5xx network failure is P1.
	out, err = g.FromInteraction(browser.InteractionResult{
		PageURL:         "https://a",
		Description:     "submit login",
		ErrorObserved:   true,
		NetworkFailures: []browser.NetworkFailure{{Method: "POST", URL: "https://a/api/login", Status: 502}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityP1, out[0].Severity)
	require.Len(t, out[0].Evidence.NetworkRequests, 1)
	assert.Equal(t, 502, out[0].Evidence.NetworkRequests[0].Status)

	// Error with only a 4xx failure and no console signal is P2.
	out, err = g.FromInteraction(browser.InteractionResult{
		PageURL:         "https://a",
		Description:     "submit login",
		ErrorObserved:   true,
		NetworkFailures: []browser.NetworkFailure{{Method: "POST", URL: "https://a/api/login", Status: 422}},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, findings.SeverityP2, out[0].Severity)
}

func TestPassthroughSeverities(t *testing.T) {
	g := newGenerator()

	viewports, err := g.FromViewports([]browser.ViewportResult{
		{PageURL: "https://a", Viewport: "375x667", Issue: "Navigation overlaps content", Severity: "P3"},
	})
	require.NoError(t, err)
	require.Len(t, viewports, 1)
	assert.Equal(t, findings.SeverityP3, viewports[0].Severity)
	assert.Equal(t, findings.TypeUI, viewports[0].Type)

	endpoints, err := g.FromEndpoints([]browser.EndpointResult{
		{Method: "GET", URL: "https://a/api/items", Status: 500, Issue: "Items endpoint returns 500", Severity: "P0"},
	})
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, findings.SeverityP0, endpoints[0].Severity)

	// A sub-analyzer severity outside P0..P4 is a schema validation failure.
	_, err = g.FromViewports([]browser.ViewportResult{
		{PageURL: "https://a", Issue: "bad", Severity: "critical"},
	})
	require.Error(t, err)
}

func TestGeneratorIDsAreSequential(t *testing.T) {
	g := newGenerator()

	out1, err := g.FromPage(browser.PageData{URL: "https://a", StatusCode: 503})
	require.NoError(t, err)
	out2, err := g.FromPage(browser.PageData{URL: "https://b", StatusCode: 500})
	require.NoError(t, err)

	assert.Equal(t, "F-001", out1[0].ID)
	assert.Equal(t, "F-002", out2[0].ID)
}

func longText() string {
	s := ""
	for i := 0; i < 10; i++ {
		s += "substantial page content with words and sentences "
	}
	return s
}
