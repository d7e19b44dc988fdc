// SPDX-License-Identifier: AGPL-3.0-only

package deploy

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flexrpl/ddtool/pkg/ddtool/dashboard"
	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
)

const (
	StatusValidated = "validated"
	StatusSuccess   = statusSuccess
	StatusFailed    = "failed"
)

// Result is the outcome of a deployment. Dashboards is only set by dry runs,
// Results only by live deployments.
type Result struct {
	Status     string                `json:"status"`
	Dashboards []dashboard.Dashboard `json:"dashboards,omitempty"`
	Results    []Outcome             `json:"results,omitempty"`
}

// Deployer loads a configuration file and reconciles its dashboards, one
// after the other and in the order they're declared.
type Deployer struct {
	loader     *dashboard.Loader
	reconciler *Reconciler
	logger     log.Logger
	metrics    *deployerMetrics
}

// NewDeployer returns a Deployer. svc may be nil, in which case only dry runs
// are possible.
func NewDeployer(loader *dashboard.Loader, svc DashboardService, logger log.Logger, reg prometheus.Registerer) *Deployer {
	d := &Deployer{
		loader:  loader,
		logger:  logger,
		metrics: newDeployerMetrics(reg),
	}
	if svc != nil {
		d.reconciler = NewReconciler(svc, logger, reg)
	}
	return d
}

// Deploy applies the configuration at configPath. Configuration errors are
// returned before anything is sent remotely.
//
// When dryRun is set the configuration is only validated, and the dashboards
// are returned with their defaults applied.
//
// Otherwise the dashboards are reconciled in order and the first failure
// stops the deployment. Dashboards reconciled before the failure stay as
// they are: the returned Result lists them along with the error.
func (d *Deployer) Deploy(ctx context.Context, configPath string, dryRun bool) (*Result, error) {
	mode := "apply"
	if dryRun {
		mode = "dry_run"
	}
	logger := log.With(d.logger, "run_id", uuid.New().String(), "mode", mode)

	cfg, err := d.loader.Load(configPath)
	if err != nil {
		d.metrics.deployments.WithLabelValues(mode, "invalid").Inc()
		level.Error(logger).Log("msg", "deployment failed", "err", err)
		return nil, err
	}

	if dryRun {
		level.Info(logger).Log("msg", "dry run, configuration validated only", "dashboards", len(cfg.Dashboards))
		d.metrics.deployments.WithLabelValues(mode, StatusValidated).Inc()
		return &Result{Status: StatusValidated, Dashboards: cfg.Dashboards}, nil
	}

	if d.reconciler == nil {
		d.metrics.deployments.WithLabelValues(mode, StatusFailed).Inc()
		return nil, failure.Newf(failure.MissingCredentials, "no remote dashboard service configured")
	}

	result := &Result{Status: StatusSuccess, Results: make([]Outcome, 0, len(cfg.Dashboards))}
	for _, db := range cfg.Dashboards {
		outcome, err := d.reconciler.Reconcile(ctx, db)
		if err != nil {
			result.Status = StatusFailed
			d.metrics.deployments.WithLabelValues(mode, StatusFailed).Inc()
			level.Error(logger).Log("msg", "deployment failed", "dashboard", db.Name, "applied", len(result.Results), "remaining", len(cfg.Dashboards)-len(result.Results)-1, "err", err)
			return result, err
		}
		result.Results = append(result.Results, outcome)
	}

	d.metrics.deployments.WithLabelValues(mode, StatusSuccess).Inc()
	level.Info(logger).Log("msg", "deployment completed", "dashboards", len(result.Results))
	return result, nil
}

// Plan reports what Deploy would do for every dashboard of the configuration
// at configPath, without writing anything remotely.
func (d *Deployer) Plan(ctx context.Context, configPath string) ([]PlannedChange, error) {
	cfg, err := d.loader.Load(configPath)
	if err != nil {
		return nil, err
	}
	if d.reconciler == nil {
		return nil, failure.Newf(failure.MissingCredentials, "no remote dashboard service configured")
	}

	changes := make([]PlannedChange, 0, len(cfg.Dashboards))
	for _, db := range cfg.Dashboards {
		change, err := d.reconciler.Plan(ctx, db)
		if err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}
