// SPDX-License-Identifier: AGPL-3.0-only

package printer

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mitchellh/colorstring"

	"github.com/flexrpl/ddtool/pkg/ddtool/deploy"
)

// Printer renders command results for humans.
type Printer struct {
	out       io.Writer
	colorizer colorstring.Colorize
}

// New returns a Printer writing to out. Color codes are stripped when color
// is false.
func New(out io.Writer, color bool) *Printer {
	return &Printer{
		out: out,
		colorizer: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: !color,
			Reset:   true,
		},
	}
}

// Println prints a line, expanding colorstring codes such as [green]. User
// provided text must not be passed here.
func (p *Printer) Println(s string) {
	fmt.Fprintln(p.out, p.colorizer.Color(s))
}

// PrintDeployResult prints the outcome of a deployment.
func (p *Printer) PrintDeployResult(result *deploy.Result, dryRun bool) {
	if result == nil {
		return
	}

	switch {
	case dryRun:
		p.Println("[green]Dry run completed successfully. Configuration is valid.")
	case result.Status == deploy.StatusFailed:
		p.Println(fmt.Sprintf("[red]Deployment failed after %d dashboard(s):", len(result.Results)))
	default:
		p.Println("[green]Deployment completed successfully:")
	}

	for _, o := range result.Results {
		fmt.Fprintf(p.out, "- %s: %s (ID: %s)\n", actionTitle(o.Action), o.Name, o.DashboardID)
	}
}

// PrintPlan prints the changes a deployment would make as a table.
func (p *Printer) PrintPlan(changes []deploy.PlannedChange) {
	if len(changes) == 0 {
		p.Println("No dashboards to deploy.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dashboard", "Action", "Remote ID"})

	var creates, updates int
	for _, c := range changes {
		id := c.DashboardID
		if id == "" {
			id = "-"
		}
		if c.Action == deploy.ActionCreate {
			creates++
		} else {
			updates++
		}
		t.AppendRow(table.Row{c.Name, c.Action, id})
	}
	t.Render()

	p.Println(fmt.Sprintf("Plan: [green]%d to create[reset], [yellow]%d to update[reset].", creates, updates))
}

// PrintViolations prints every schema violation of a configuration.
func (p *Printer) PrintViolations(violations []error) {
	p.Println(fmt.Sprintf("[red]Configuration is invalid, %d violation(s):", len(violations)))
	for _, v := range violations {
		fmt.Fprintln(p.out, "- "+v.Error())
	}
}

func actionTitle(a deploy.Action) string {
	s := string(a)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
