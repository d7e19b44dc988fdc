// SPDX-License-Identifier: AGPL-3.0-only

package deploy

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flexrpl/ddtool/pkg/ddtool/client"
	"github.com/flexrpl/ddtool/pkg/ddtool/dashboard"
)

// DashboardService is the remote inventory dashboards are reconciled against.
// It's implemented by *client.DatadogClient.
type DashboardService interface {
	ListDashboards(ctx context.Context) ([]client.DashboardSummary, error)
	CreateDashboard(ctx context.Context, req client.DashboardRequest) (*client.Dashboard, error)
	UpdateDashboard(ctx context.Context, id string, req client.DashboardRequest) (*client.Dashboard, error)
}

// Action is what reconciling a dashboard did, or would do, remotely.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

const statusSuccess = "success"

// Outcome is the result of reconciling a single dashboard.
type Outcome struct {
	Status      string `json:"status"`
	DashboardID string `json:"dashboard_id"`
	Name        string `json:"name"`
	Action      Action `json:"action"`
}

// PlannedChange is the action reconciling a dashboard would take. DashboardID
// is empty for creations.
type PlannedChange struct {
	Name        string `json:"name"`
	Action      Action `json:"action"`
	DashboardID string `json:"dashboard_id,omitempty"`
}

// Reconciler creates or updates one remote dashboard per declared dashboard,
// matching them by name against the remote titles.
//
// The remote inventory is listed again for every dashboard, and nothing stops
// another client from creating a dashboard with the same title between the
// listing and the creation: in that case a duplicate is created.
type Reconciler struct {
	svc     DashboardService
	logger  log.Logger
	metrics *reconcilerMetrics
}

// NewReconciler returns a Reconciler working against svc. Metrics are
// registered on reg when it isn't nil.
func NewReconciler(svc DashboardService, logger log.Logger, reg prometheus.Registerer) *Reconciler {
	return &Reconciler{
		svc:     svc,
		logger:  logger,
		metrics: newReconcilerMetrics(reg),
	}
}

// Reconcile creates d remotely, or updates the first remote dashboard whose
// title is exactly d.Name. Errors from the remote service are returned as is,
// nothing is retried.
func (r *Reconciler) Reconcile(ctx context.Context, d dashboard.Dashboard) (Outcome, error) {
	start := time.Now()
	logger := log.With(r.logger, "dashboard", d.Name)

	outcome, err := r.reconcile(ctx, d)
	if err != nil {
		r.metrics.failures.Inc()
		level.Error(logger).Log("msg", "failed to deploy dashboard", "err", err)
		return Outcome{}, err
	}

	r.metrics.reconciled.WithLabelValues(string(outcome.Action)).Inc()
	r.metrics.duration.Observe(time.Since(start).Seconds())
	level.Info(logger).Log("msg", "deployed dashboard", "action", outcome.Action, "id", outcome.DashboardID)
	return outcome, nil
}

func (r *Reconciler) reconcile(ctx context.Context, d dashboard.Dashboard) (Outcome, error) {
	existing, err := r.lookup(ctx, d.Name)
	if err != nil {
		return Outcome{}, err
	}

	req := RenderRequest(d)

	var (
		result *client.Dashboard
		action Action
	)
	if existing != nil {
		action = ActionUpdate
		result, err = r.svc.UpdateDashboard(ctx, existing.ID, req)
	} else {
		action = ActionCreate
		result, err = r.svc.CreateDashboard(ctx, req)
	}
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Status:      statusSuccess,
		DashboardID: result.ID,
		Name:        d.Name,
		Action:      action,
	}, nil
}

// Plan returns what Reconcile would do for d without writing anything.
func (r *Reconciler) Plan(ctx context.Context, d dashboard.Dashboard) (PlannedChange, error) {
	existing, err := r.lookup(ctx, d.Name)
	if err != nil {
		return PlannedChange{}, err
	}
	if existing == nil {
		return PlannedChange{Name: d.Name, Action: ActionCreate}, nil
	}
	return PlannedChange{Name: d.Name, Action: ActionUpdate, DashboardID: existing.ID}, nil
}

// lookup returns the first remote dashboard titled exactly name, or nil.
func (r *Reconciler) lookup(ctx context.Context, name string) (*client.DashboardSummary, error) {
	r.metrics.listRequests.Inc()
	dashboards, err := r.svc.ListDashboards(ctx)
	if err != nil {
		return nil, err
	}

	for i := range dashboards {
		if dashboards[i].Title == name {
			level.Debug(r.logger).Log("msg", "found remote dashboard", "dashboard", name, "id", dashboards[i].ID)
			return &dashboards[i], nil
		}
	}
	return nil, nil
}

// RenderRequest builds the request sent to the remote service for d.
func RenderRequest(d dashboard.Dashboard) client.DashboardRequest {
	layout := d.LayoutType
	if layout == "" {
		layout = dashboard.DefaultLayoutType
	}

	vars := d.TemplateVariables
	if vars == nil {
		vars = []dashboard.TemplateVariable{}
	}

	return client.DashboardRequest{
		Title:             d.Name,
		Description:       d.Description,
		Widgets:           d.Widgets,
		LayoutType:        layout,
		TemplateVariables: vars,
	}
}
