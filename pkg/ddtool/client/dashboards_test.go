// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexrpl/ddtool/pkg/ddtool/dashboard"
	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
)

type recordedRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		requests = append(requests, recordedRequest{
			method: r.Method,
			path:   r.URL.EscapedPath(),
			header: r.Header.Clone(),
			body:   body,
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newTestClient(t *testing.T, address string) *DatadogClient {
	c, err := New(Config{APIKey: "api-key", AppKey: "app-key", Address: address}, log.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestListDashboards(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"dashboards":[{"id":"abc-123","title":"Test Dashboard","author_handle":"x"},{"id":"def-456","title":"Other"}]}`)
	c := newTestClient(t, srv.URL)

	got, err := c.ListDashboards(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []DashboardSummary{
		{ID: "abc-123", Title: "Test Dashboard"},
		{ID: "def-456", Title: "Other"},
	}, got)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "GET", req.method)
	assert.Equal(t, "/api/v1/dashboard", req.path)
	assert.Equal(t, "api-key", req.header.Get("DD-API-KEY"))
	assert.Equal(t, "app-key", req.header.Get("DD-APPLICATION-KEY"))
	assert.Contains(t, req.header.Get("User-Agent"), "ddtool/")
}

func TestCreateDashboard(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"id":"new-id","title":"Test Dashboard","url":"/dashboard/new-id"}`)
	c := newTestClient(t, srv.URL)

	got, err := c.CreateDashboard(context.Background(), DashboardRequest{
		Title:       "Test Dashboard",
		Description: "",
		Widgets: []dashboard.Widget{{
			Title: "CPU",
			Type:  "timeseries",
			Query: "avg:system.cpu.user{*}",
			Extra: map[string]interface{}{"precision": 2},
		}},
		LayoutType:        dashboard.LayoutOrdered,
		TemplateVariables: []dashboard.TemplateVariable{},
	})
	require.NoError(t, err)
	assert.Equal(t, &Dashboard{ID: "new-id", Title: "Test Dashboard", URL: "/dashboard/new-id"}, got)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "POST", req.method)
	assert.Equal(t, "/api/v1/dashboard", req.path)
	assert.Equal(t, "application/json", req.header.Get("Content-Type"))
	assert.JSONEq(t, `{
		"title": "Test Dashboard",
		"description": "",
		"widgets": [{"title": "CPU", "type": "timeseries", "query": "avg:system.cpu.user{*}", "precision": 2}],
		"layout_type": "ordered",
		"template_variables": []
	}`, string(req.body))
}

func TestUpdateDashboard(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"id":"abc/123","title":"Test Dashboard"}`)
	c := newTestClient(t, srv.URL)

	got, err := c.UpdateDashboard(context.Background(), "abc/123", DashboardRequest{
		Title:      "Test Dashboard",
		Widgets:    []dashboard.Widget{{Title: "CPU", Type: "timeseries"}},
		LayoutType: dashboard.LayoutFree,
		TemplateVariables: []dashboard.TemplateVariable{
			{Name: "env", Prefix: strPtr("env"), Default: strPtr("prod")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc/123", got.ID)

	require.Len(t, *requests, 1)
	req := (*requests)[0]
	assert.Equal(t, "PUT", req.method)
	assert.Equal(t, "/api/v1/dashboard/abc%2F123", req.path)
	assert.JSONEq(t, `{
		"title": "Test Dashboard",
		"description": "",
		"widgets": [{"title": "CPU", "type": "timeseries"}],
		"layout_type": "free",
		"template_variables": [{"name": "env", "prefix": "env", "default": "prod"}]
	}`, string(req.body))
}

func TestRequestErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		status   int
		response string
		wantErr  error
		wantMsg  string
	}{
		"not found": {
			status:  http.StatusNotFound,
			wantErr: ErrResourceNotFound,
		},
		"unauthorized": {
			status:   http.StatusUnauthorized,
			response: `{"errors":["Unauthorized"]}`,
			wantErr:  errUnauthorized,
		},
		"forbidden": {
			status:  http.StatusForbidden,
			wantErr: errForbidden,
		},
		"rate limited": {
			status:  http.StatusTooManyRequests,
			wantErr: errTooManyRequests,
		},
		"server error": {
			status:   http.StatusInternalServerError,
			response: "boom",
			wantMsg:  `server returned HTTP status: 500 Internal Server Error, body: "boom"`,
		},
		"invalid body": {
			status:   http.StatusOK,
			response: "not json",
			wantMsg:  "unable to unmarshal response",
		},
	} {
		t.Run(name, func(t *testing.T) {
			srv, _ := newTestServer(t, tc.status, tc.response)
			c := newTestClient(t, srv.URL)

			_, err := c.ListDashboards(context.Background())
			require.Error(t, err)
			assert.Equal(t, failure.RemoteServiceError, failure.KindOf(err))
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "unexpected error: %v", err)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestCreateDashboard_responseWithoutID(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	_, err := c.CreateDashboard(context.Background(), DashboardRequest{Title: "x"})
	require.Error(t, err)
	assert.Equal(t, failure.RemoteServiceError, failure.KindOf(err))
}

func TestTransportErrorIsRemoteServiceError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, "")
	c := newTestClient(t, srv.URL)
	srv.Close()

	_, err := c.ListDashboards(context.Background())
	require.Error(t, err)
	assert.Equal(t, failure.RemoteServiceError, failure.KindOf(err))
}

func TestNew(t *testing.T) {
	_, err := New(Config{AppKey: "app"}, log.NewNopLogger())
	require.Error(t, err)
	assert.Equal(t, failure.MissingCredentials, failure.KindOf(err))
	assert.Equal(t, "missing required credentials: API key", err.Error())

	_, err = New(Config{}, log.NewNopLogger())
	require.Error(t, err)
	assert.Equal(t, "missing required credentials: API key, application key", err.Error())

	c, err := New(Config{APIKey: "api", AppKey: "app", Site: "datadoghq.eu"}, log.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "https://api.datadoghq.eu", c.endpoint.String())
}

func TestConfigEndpoint(t *testing.T) {
	assert.Equal(t, "https://api.datadoghq.com", Config{}.Endpoint())
	assert.Equal(t, "https://api.us5.datadoghq.com", Config{Site: "us5.datadoghq.com"}.Endpoint())
	assert.Equal(t, "http://localhost:8080", Config{Site: "datadoghq.eu", Address: "http://localhost:8080"}.Endpoint())
}

func TestBuildRequest(t *testing.T) {
	for name, tc := range map[string]struct {
		endpoint string
		path     string
		want     string
	}{
		"plain": {
			endpoint: "https://api.datadoghq.com",
			path:     "/api/v1/dashboard",
			want:     "https://api.datadoghq.com/api/v1/dashboard",
		},
		"endpoint with prefix and trailing slash": {
			endpoint: "http://proxy.local/datadog/",
			path:     "/api/v1/dashboard",
			want:     "http://proxy.local/datadog/api/v1/dashboard",
		},
		"escaped path": {
			endpoint: "https://api.datadoghq.com",
			path:     "/api/v1/dashboard/a%2Fb",
			want:     "https://api.datadoghq.com/api/v1/dashboard/a%2Fb",
		},
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, tc.endpoint)
			req, err := buildRequest(context.Background(), tc.path, "GET", *c.endpoint, nil, -1)
			require.NoError(t, err)
			assert.Equal(t, tc.want, req.URL.String())
		})
	}
}

func TestCreateDashboard_unencodablePayload(t *testing.T) {
	srv, requests := newTestServer(t, http.StatusOK, `{"id":"abc-123"}`)
	c := newTestClient(t, srv.URL)

	_, err := c.CreateDashboard(context.Background(), DashboardRequest{
		Title:   "Test Dashboard",
		Widgets: []dashboard.Widget{{Title: "CPU", Type: "timeseries", Extra: map[string]interface{}{"bad": make(chan int)}}},
	})
	require.Error(t, err)
	assert.Equal(t, failure.RemoteServiceError, failure.KindOf(err))
	assert.Contains(t, err.Error(), `unable to marshal dashboard "Test Dashboard"`)
	assert.Empty(t, *requests)
}

func strPtr(s string) *string {
	return &s
}
