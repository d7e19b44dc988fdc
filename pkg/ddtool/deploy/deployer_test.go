// SPDX-License-Identifier: AGPL-3.0-only

package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexrpl/ddtool/pkg/ddtool/client"
	"github.com/flexrpl/ddtool/pkg/ddtool/dashboard"
	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
)

const singleDashboardConfig = `
version: "1.0"
defaults:
  layout_type: ordered
  tags: ["env:test"]
dashboards:
  - name: "Test Dashboard"
    widgets:
      - title: "w1"
        type: timeseries
      - title: "w2"
        type: note
`

const threeDashboardsConfig = `
version: "1.0"
dashboards:
  - name: "First"
    widgets: [{title: a, type: note}]
  - name: "Second"
    widgets: [{title: b, type: note}]
  - name: "Third"
    widgets: [{title: c, type: note}]
`

func newTestDeployer(t *testing.T, files map[string]string, svc DashboardService, reg prometheus.Registerer) *Deployer {
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	logger := log.NewNopLogger()
	return NewDeployer(dashboard.NewLoader(fs, logger), svc, logger, reg)
}

func TestDeploy_dryRun(t *testing.T) {
	svc := &fakeService{}
	d := newTestDeployer(t, map[string]string{"/dashboards.yaml": singleDashboardConfig}, svc, nil)

	result, err := d.Deploy(context.Background(), "/dashboards.yaml", true)
	require.NoError(t, err)

	assert.Equal(t, StatusValidated, result.Status)
	assert.Empty(t, result.Results)
	require.Len(t, result.Dashboards, 1)
	assert.Equal(t, "Test Dashboard", result.Dashboards[0].Name)
	assert.Equal(t, dashboard.LayoutOrdered, result.Dashboards[0].LayoutType)
	assert.Equal(t, []string{"env:test"}, result.Dashboards[0].Tags)
	assert.Len(t, result.Dashboards[0].Widgets, 2)

	assert.Empty(t, svc.calls, "a dry run must not reach the remote service")
}

func TestDeploy_dryRunWithoutRemoteService(t *testing.T) {
	d := newTestDeployer(t, map[string]string{"/dashboards.yaml": singleDashboardConfig}, nil, nil)

	result, err := d.Deploy(context.Background(), "/dashboards.yaml", true)
	require.NoError(t, err)
	assert.Equal(t, StatusValidated, result.Status)

	_, err = d.Deploy(context.Background(), "/dashboards.yaml", false)
	require.Error(t, err)
	assert.Equal(t, failure.MissingCredentials, failure.KindOf(err))
}

func TestDeploy_createsAgainstEmptyInventory(t *testing.T) {
	svc := &fakeService{}
	d := newTestDeployer(t, map[string]string{"/dashboards.yaml": singleDashboardConfig}, svc, nil)

	result, err := d.Deploy(context.Background(), "/dashboards.yaml", false)
	require.NoError(t, err)

	assert.Equal(t, &Result{
		Status: StatusSuccess,
		Results: []Outcome{
			{Status: "success", DashboardID: "created-1", Name: "Test Dashboard", Action: ActionCreate},
		},
	}, result)

	require.Equal(t, []string{"list", "create"}, svc.methods())
	req := svc.calls[1].req
	assert.Equal(t, "Test Dashboard", req.Title)
	assert.Equal(t, dashboard.LayoutOrdered, req.LayoutType)
	assert.Equal(t, "", req.Description)
	assert.Equal(t, []dashboard.TemplateVariable{}, req.TemplateVariables)
}

func TestDeploy_keepsDeclarationOrder(t *testing.T) {
	svc := &fakeService{inventory: []client.DashboardSummary{{ID: "second-id", Title: "Second"}}}
	d := newTestDeployer(t, map[string]string{"/dashboards.yaml": threeDashboardsConfig}, svc, nil)

	result, err := d.Deploy(context.Background(), "/dashboards.yaml", false)
	require.NoError(t, err)

	assert.Equal(t, []Outcome{
		{Status: "success", DashboardID: "created-1", Name: "First", Action: ActionCreate},
		{Status: "success", DashboardID: "second-id", Name: "Second", Action: ActionUpdate},
		{Status: "success", DashboardID: "created-2", Name: "Third", Action: ActionCreate},
	}, result.Results)
}

func TestDeploy_stopsAtFirstFailure(t *testing.T) {
	remoteErr := failure.Newf(failure.RemoteServiceError, "server returned HTTP status: 500 Internal Server Error")
	svc := &fakeService{failOn: map[string]error{"create:Second": remoteErr}}
	d := newTestDeployer(t, map[string]string{"/dashboards.yaml": threeDashboardsConfig}, svc, nil)

	result, err := d.Deploy(context.Background(), "/dashboards.yaml", false)
	require.Error(t, err)
	assert.Same(t, remoteErr, err)

	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, []Outcome{
		{Status: "success", DashboardID: "created-1", Name: "First", Action: ActionCreate},
	}, result.Results)

	// The first dashboard stays deployed, the third one is never attempted.
	assert.Equal(t, []string{"list", "create", "list", "create"}, svc.methods())
	assert.Equal(t, []client.DashboardSummary{{ID: "created-1", Title: "First"}}, svc.inventory)
}

func TestDeploy_invalidConfigurationNeverReachesRemote(t *testing.T) {
	files := map[string]string{
		"/no_dashboards.yaml": "version: \"1.0\"\n",
		"/no_widgets.yaml":    "version: \"1.0\"\ndashboards:\n  - name: a\n  - name: b\n    widgets: [{title: a, type: note}]\n",
		"/no_name.yaml":       "version: \"1.0\"\ndashboards:\n  - widgets: [{title: a, type: note}]\n",
		"/malformed.yaml":     "invalid: yaml: content",
	}

	for path, wantKind := range map[string]failure.Kind{
		"/no_dashboards.yaml": failure.SchemaViolation,
		"/no_widgets.yaml":    failure.SchemaViolation,
		"/no_name.yaml":       failure.SchemaViolation,
		"/malformed.yaml":     failure.MalformedSyntax,
		"/missing.yaml":       failure.ConfigNotFound,
	} {
		t.Run(path, func(t *testing.T) {
			for _, dryRun := range []bool{true, false} {
				svc := &fakeService{}
				d := newTestDeployer(t, files, svc, nil)

				result, err := d.Deploy(context.Background(), path, dryRun)
				require.Error(t, err)
				assert.Nil(t, result)
				assert.Equal(t, wantKind, failure.KindOf(err))
				assert.Empty(t, svc.calls)
			}
		})
	}
}

func TestDeploy_metrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	svc := &fakeService{failOn: map[string]error{"create:Third": errors.New("boom")}}
	d := newTestDeployer(t, map[string]string{
		"/one.yaml":   singleDashboardConfig,
		"/three.yaml": threeDashboardsConfig,
	}, svc, reg)

	_, err := d.Deploy(context.Background(), "/one.yaml", true)
	require.NoError(t, err)
	_, err = d.Deploy(context.Background(), "/one.yaml", false)
	require.NoError(t, err)
	_, err = d.Deploy(context.Background(), "/three.yaml", false)
	require.Error(t, err)
	_, err = d.Deploy(context.Background(), "/missing.yaml", false)
	require.Error(t, err)

	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP ddtool_deployments_total Total number of deployments, by mode and result.
# TYPE ddtool_deployments_total counter
ddtool_deployments_total{mode="apply",result="failed"} 1
ddtool_deployments_total{mode="apply",result="invalid"} 1
ddtool_deployments_total{mode="apply",result="success"} 1
ddtool_deployments_total{mode="dry_run",result="validated"} 1
`), "ddtool_deployments_total"))
}

func TestPlan(t *testing.T) {
	svc := &fakeService{inventory: []client.DashboardSummary{{ID: "second-id", Title: "Second"}}}
	d := newTestDeployer(t, map[string]string{"/dashboards.yaml": threeDashboardsConfig}, svc, nil)

	changes, err := d.Plan(context.Background(), "/dashboards.yaml")
	require.NoError(t, err)
	assert.Equal(t, []PlannedChange{
		{Name: "First", Action: ActionCreate},
		{Name: "Second", Action: ActionUpdate, DashboardID: "second-id"},
		{Name: "Third", Action: ActionCreate},
	}, changes)

	assert.Equal(t, []string{"list", "list", "list"}, svc.methods())
}
