// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"net/url"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushGatewayConfig pushes the metrics collected during a run to a
// Prometheus Pushgateway once the command has completed.
type PushGatewayConfig struct {
	Endpoint *url.URL
	JobName  string

	gatherer  prometheus.Gatherer
	logConfig *LoggerConfig
}

func (p *PushGatewayConfig) Register(app *kingpin.Application, _ EnvVarNames, logConfig *LoggerConfig) {
	app.Flag("push-gateway.endpoint", "URL of the Pushgateway to push metrics to once the command completes.").URLVar(&p.Endpoint)
	app.Flag("push-gateway.job", "Job label attached to pushed metrics.").Default("ddtool").StringVar(&p.JobName)

	p.logConfig = logConfig
	if p.gatherer == nil {
		p.gatherer = prometheus.DefaultGatherer
	}
}

// Stop pushes the gathered metrics, if an endpoint is configured.
func (p *PushGatewayConfig) Stop() {
	if p.Endpoint == nil {
		return
	}

	logger := p.logConfig.Logger()
	if err := push.New(p.Endpoint.String(), p.JobName).Gatherer(p.gatherer).Push(); err != nil {
		level.Error(logger).Log("msg", "failed to push metrics to the Pushgateway", "endpoint", p.Endpoint.String(), "err", err)
		return
	}
	level.Debug(logger).Log("msg", "metrics pushed to the Pushgateway", "endpoint", p.Endpoint.String())
}
