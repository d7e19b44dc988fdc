// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/flexrpl/ddtool/pkg/ddtool/commands"
	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
	"github.com/flexrpl/ddtool/pkg/util/version"
)

var (
	dashboardCommand commands.DashboardCommand
	logConfig        commands.LoggerConfig
	pushGateway      commands.PushGatewayConfig
)

func main() {
	app := kingpin.New("ddtool", "Deploy Datadog dashboards declared in YAML configuration files.")

	envVars := commands.NewEnvVarsWithPrefix("DATADOG")

	// Register logger first so its PreAction runs before others
	logConfig.Register(app, envVars)

	dashboardCommand.Register(app, envVars, &logConfig, prometheus.DefaultRegisterer)
	pushGateway.Register(app, envVars, &logConfig)

	app.Command("version", "Get the version of the ddtool CLI").Action(func(*kingpin.ParseContext) error {
		fmt.Fprintln(os.Stdout, version.Print("ddtool"))
		return nil
	})

	prometheus.MustRegister(version.NewCollector("ddtool"))

	_, err := app.Parse(os.Args[1:])
	pushGateway.Stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, failure.Format(err))
		os.Exit(1)
	}
}
