// SPDX-License-Identifier: AGPL-3.0-only

package client

import (
	"bytes"
	"context"
	"io"
	"net/url"

	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/flexrpl/ddtool/pkg/ddtool/dashboard"
	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
)

const dashboardAPIPath = "/api/v1/dashboard"

// DashboardSummary is an entry of the remote dashboards inventory.
type DashboardSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type dashboardList struct {
	Dashboards []DashboardSummary `json:"dashboards"`
}

// DashboardRequest is the body sent to create or update a dashboard.
type DashboardRequest struct {
	Title             string                       `json:"title"`
	Description       string                       `json:"description"`
	Widgets           []dashboard.Widget           `json:"widgets"`
	LayoutType        dashboard.LayoutType         `json:"layout_type"`
	TemplateVariables []dashboard.TemplateVariable `json:"template_variables"`
}

// Dashboard is a dashboard as returned by the API after a write.
type Dashboard struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// ListDashboards retrieves the full inventory of dashboards.
func (c *DatadogClient) ListDashboards(ctx context.Context) ([]DashboardSummary, error) {
	res, err := c.doRequest(ctx, dashboardAPIPath, "GET", nil, -1)
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, failure.New(failure.RemoteServiceError, errors.Wrap(err, "reading dashboards list"))
	}

	list := dashboardList{}
	if err := json.Unmarshal(body, &list); err != nil {
		level.Debug(c.logger).Log("msg", "failed to unmarshal dashboards list from response", "body", string(body))
		return nil, failure.New(failure.RemoteServiceError, errors.Wrap(err, "unable to unmarshal response"))
	}

	return list.Dashboards, nil
}

// CreateDashboard creates a new dashboard.
func (c *DatadogClient) CreateDashboard(ctx context.Context, req DashboardRequest) (*Dashboard, error) {
	return c.writeDashboard(ctx, "POST", dashboardAPIPath, req)
}

// UpdateDashboard replaces the definition of the dashboard with the given id.
func (c *DatadogClient) UpdateDashboard(ctx context.Context, id string, req DashboardRequest) (*Dashboard, error) {
	return c.writeDashboard(ctx, "PUT", dashboardAPIPath+"/"+url.PathEscape(id), req)
}

func (c *DatadogClient) writeDashboard(ctx context.Context, method, path string, req DashboardRequest) (*Dashboard, error) {
	payload, err := json.Marshal(&req)
	if err != nil {
		return nil, failure.New(failure.RemoteServiceError, errors.Wrapf(err, "unable to marshal dashboard %q", req.Title))
	}

	res, err := c.doRequest(ctx, path, method, bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, err
	}

	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, failure.New(failure.RemoteServiceError, errors.Wrapf(err, "reading response for dashboard %q", req.Title))
	}

	d := Dashboard{}
	if err := json.Unmarshal(body, &d); err != nil {
		level.Debug(c.logger).Log("msg", "failed to unmarshal dashboard from response", "body", string(body))
		return nil, failure.New(failure.RemoteServiceError, errors.Wrap(err, "unable to unmarshal response"))
	}
	if d.ID == "" {
		return nil, failure.Newf(failure.RemoteServiceError, "response for dashboard %q has no id", req.Title)
	}

	return &d, nil
}
