// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log/level"
	"github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"golang.org/x/term"

	"github.com/flexrpl/ddtool/pkg/ddtool/client"
	"github.com/flexrpl/ddtool/pkg/ddtool/dashboard"
	"github.com/flexrpl/ddtool/pkg/ddtool/deploy"
	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
	"github.com/flexrpl/ddtool/pkg/ddtool/printer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DashboardCommand deploys dashboards declared in configuration files.
type DashboardCommand struct {
	ClientConfig client.Config

	configFile    string
	dryRun        bool
	verbose       bool
	allViolations bool
	disableColor  bool

	// colorOutput is set when out is a terminal.
	colorOutput bool

	envVars    EnvVarNames
	fs         afero.Fs
	out        io.Writer
	logConfig  *LoggerConfig
	registerer prometheus.Registerer
}

// Register dashboard related commands and flags with the kingpin application
func (c *DashboardCommand) Register(app *kingpin.Application, envVars EnvVarNames, logConfig *LoggerConfig, reg prometheus.Registerer) {
	c.envVars = envVars
	c.logConfig = logConfig
	c.registerer = reg
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if c.out == nil {
		c.out = os.Stdout
		c.colorOutput = term.IsTerminal(int(os.Stdout.Fd()))
	}

	deployCmd := app.Command("deploy", "Deploy the dashboards of a configuration file.").Action(c.deploy)
	deployCmd.Flag("dry-run", "Validate the configuration without deploying.").BoolVar(&c.dryRun)
	deployCmd.Flag("verbose", "Enable debug logging.").Short('v').BoolVar(&c.verbose)

	validateCmd := app.Command("validate", "Validate a dashboards configuration file. No credentials are needed.").Action(c.validate)
	validateCmd.Flag("all", "Report every schema violation instead of the first one.").BoolVar(&c.allViolations)

	planCmd := app.Command("plan", "Show which dashboards a deployment would create or update, without changing anything.").Action(c.plan)

	schemaCmd := app.Command("schema", "Print the JSON Schema of the dashboards configuration file.").Action(c.schema)

	for _, cmd := range []*kingpin.CmdClause{deployCmd, validateCmd, planCmd} {
		cmd.Arg("config-file", "Dashboards configuration file.").Required().StringVar(&c.configFile)
	}
	for _, cmd := range []*kingpin.CmdClause{deployCmd, validateCmd, planCmd, schemaCmd} {
		cmd.Flag("disable-color", "Disable colored output.").BoolVar(&c.disableColor)
	}

	for _, cmd := range []*kingpin.CmdClause{deployCmd, planCmd} {
		cmd.Flag("api-key", "Datadog API key; alternatively, set "+envVars.APIKey+".").
			Envar(envVars.APIKey).
			Default("").
			StringVar(&c.ClientConfig.APIKey)
		cmd.Flag("app-key", "Datadog application key; alternatively, set "+envVars.AppKey+".").
			Envar(envVars.AppKey).
			Default("").
			StringVar(&c.ClientConfig.AppKey)
		cmd.Flag("site", "Datadog site, the API is reached at https://api.<site>; alternatively, set "+envVars.Site+".").
			Envar(envVars.Site).
			Default(client.DefaultSite).
			StringVar(&c.ClientConfig.Site)
		cmd.Flag("address", "Address of the Datadog API, overrides --site; alternatively, set "+envVars.Address+".").
			Envar(envVars.Address).
			Default("").
			StringVar(&c.ClientConfig.Address)
		cmd.Flag("tls-ca-path", "TLS CA certificate to verify the Datadog API as part of mTLS; alternatively, set "+envVars.TLSCAPath+".").
			Envar(envVars.TLSCAPath).
			Default("").
			StringVar(&c.ClientConfig.TLS.CAPath)
		cmd.Flag("tls-cert-path", "TLS client certificate to authenticate with the Datadog API as part of mTLS; alternatively, set "+envVars.TLSCertPath+".").
			Envar(envVars.TLSCertPath).
			Default("").
			StringVar(&c.ClientConfig.TLS.CertPath)
		cmd.Flag("tls-key-path", "TLS client certificate private key to authenticate with the Datadog API as part of mTLS; alternatively, set "+envVars.TLSKeyPath+".").
			Envar(envVars.TLSKeyPath).
			Default("").
			StringVar(&c.ClientConfig.TLS.KeyPath)
		cmd.Flag("http.timeout", "Timeout of every request sent to the Datadog API.").
			Default("30s").
			DurationVar(&c.ClientConfig.Timeout)
	}
}

func (c *DashboardCommand) deploy(_ *kingpin.ParseContext) error {
	if c.verbose {
		c.logConfig.SetLevel("debug")
	}
	logger := c.logConfig.Logger()

	var svc deploy.DashboardService
	if !c.dryRun {
		cli, err := c.newClient()
		if err != nil {
			return err
		}
		svc = cli
	}

	d := deploy.NewDeployer(dashboard.NewLoader(c.fs, logger), svc, logger, c.registerer)
	result, err := d.Deploy(context.Background(), c.configFile, c.dryRun)
	c.newPrinter().PrintDeployResult(result, c.dryRun)
	return err
}

func (c *DashboardCommand) validate(_ *kingpin.ParseContext) error {
	logger := c.logConfig.Logger()
	loader := dashboard.NewLoader(c.fs, logger)

	if c.allViolations {
		violations, err := loader.Lint(c.configFile)
		if err != nil {
			return errors.Wrap(err, "configuration is invalid")
		}
		if len(violations) > 0 {
			c.newPrinter().PrintViolations(violations)
			return errors.Wrap(violations[0], "configuration is invalid")
		}
	} else {
		d := deploy.NewDeployer(loader, nil, logger, c.registerer)
		if _, err := d.Deploy(context.Background(), c.configFile, true); err != nil {
			return errors.Wrap(err, "configuration is invalid")
		}
	}

	c.newPrinter().Println("[green]Configuration is valid.")
	return nil
}

func (c *DashboardCommand) plan(_ *kingpin.ParseContext) error {
	logger := c.logConfig.Logger()

	cli, err := c.newClient()
	if err != nil {
		return err
	}

	d := deploy.NewDeployer(dashboard.NewLoader(c.fs, logger), cli, logger, c.registerer)
	changes, err := d.Plan(context.Background(), c.configFile)
	if err != nil {
		return err
	}
	c.newPrinter().PrintPlan(changes)
	return nil
}

func (c *DashboardCommand) schema(_ *kingpin.ParseContext) error {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	s := r.Reflect(&dashboard.Config{})
	s.Title = "Datadog dashboards configuration"

	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to render the configuration schema")
	}
	if c.useColor() {
		return quick.Highlight(c.out, string(out)+"\n", "json", "terminal", "swapoff")
	}
	_, err = fmt.Fprintln(c.out, string(out))
	return err
}

// newClient returns a Datadog client, once the credentials have been checked.
func (c *DashboardCommand) newClient() (*client.DatadogClient, error) {
	var missing []string
	if c.ClientConfig.APIKey == "" {
		missing = append(missing, c.envVars.APIKey)
	}
	if c.ClientConfig.AppKey == "" {
		missing = append(missing, c.envVars.AppKey)
	}
	if len(missing) > 0 {
		return nil, failure.Newf(failure.MissingCredentials, "missing required environment variables: %s", strings.Join(missing, ", "))
	}

	logger := c.logConfig.Logger()
	cli, err := client.New(c.ClientConfig, logger)
	if err != nil {
		return nil, err
	}
	level.Debug(logger).Log("msg", "Datadog client configured", "endpoint", c.ClientConfig.Endpoint())
	return cli, nil
}

func (c *DashboardCommand) useColor() bool {
	return c.colorOutput && !c.disableColor
}

func (c *DashboardCommand) newPrinter() *printer.Printer {
	return printer.New(c.out, c.useColor())
}
