// SPDX-License-Identifier: AGPL-3.0-only

package dashboard

import (
	"errors"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/multierror"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v3"

	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
)

// Loader reads dashboard configuration files.
type Loader struct {
	fs     afero.Fs
	logger log.Logger
}

// NewLoader returns a Loader reading from fs.
func NewLoader(fs afero.Fs, logger log.Logger) *Loader {
	return &Loader{fs: fs, logger: logger}
}

// Load reads, validates and applies defaults to the configuration at path.
func (l *Loader) Load(path string) (*Config, error) {
	content, err := l.readFile(path)
	if err != nil {
		level.Error(l.logger).Log("msg", "unable to load configuration file", "file", path, "err", err)
		return nil, err
	}

	cfg, err := Parse(content)
	if err != nil {
		level.Error(l.logger).Log("msg", "error processing configuration", "file", path, "err", err)
		return nil, err
	}

	for name, count := range duplicateNames(cfg) {
		level.Warn(l.logger).Log("msg", "dashboard name declared more than once, all of them will target the same remote dashboard", "name", name, "count", count)
	}

	level.Info(l.logger).Log("msg", "successfully parsed configuration", "file", path, "dashboards", len(cfg.Dashboards))
	return cfg, nil
}

// Lint returns every schema violation of the configuration at path. The
// returned error is only set when the file can't be read or isn't valid YAML.
func (l *Loader) Lint(path string) (multierror.MultiError, error) {
	content, err := l.readFile(path)
	if err != nil {
		return nil, err
	}
	node, err := ParseNode(content)
	if err != nil {
		return nil, err
	}
	return Violations(node), nil
}

func (l *Loader) readFile(path string) ([]byte, error) {
	info, err := l.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, failure.Newf(failure.ConfigNotFound, "configuration file not found: %s", path)
	}
	if err != nil {
		return nil, failure.Newf(failure.ConfigUnreadable, "cannot read configuration file %s: %v", path, err)
	}
	if info.IsDir() {
		return nil, failure.Newf(failure.ConfigUnreadable, "configuration path is not a file: %s", path)
	}

	content, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, failure.Newf(failure.ConfigUnreadable, "cannot read configuration file %s: %v", path, err)
	}
	return content, nil
}

// Parse decodes and validates a configuration document and applies its
// defaults. Only the first YAML document of content is considered.
func Parse(content []byte) (*Config, error) {
	node, err := ParseNode(content)
	if err != nil {
		return nil, err
	}

	if err := Validate(node); err != nil {
		return nil, err
	}

	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return nil, failure.Newf(failure.SchemaViolation, "unable to decode configuration: %v", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ParseNode decodes content into a YAML node tree without validating it.
func ParseNode(content []byte) (*yaml.Node, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(content, &node); err != nil {
		return nil, failure.Newf(failure.MalformedSyntax, "failed to parse YAML configuration: %v", err)
	}

	// Alias cycles are only detected when decoding.
	if node.Kind == yaml.DocumentNode {
		var scratch interface{}
		if err := node.Decode(&scratch); err != nil {
			return nil, failure.Newf(failure.MalformedSyntax, "failed to parse YAML configuration: %v", err)
		}
	}
	return &node, nil
}

func duplicateNames(cfg *Config) map[string]int {
	counts := make(map[string]int, len(cfg.Dashboards))
	for _, d := range cfg.Dashboards {
		counts[d.Name]++
	}
	for name, count := range counts {
		if count < 2 {
			delete(counts, name)
		}
	}
	return counts
}
