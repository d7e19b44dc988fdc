// SPDX-License-Identifier: AGPL-3.0-only

package dashboard

import (
	"fmt"
	"strconv"

	"github.com/grafana/dskit/multierror"
	yaml "gopkg.in/yaml.v3"

	"github.com/flexrpl/ddtool/pkg/ddtool/failure"
)

const rootPath = "<root>"

// SchemaViolation describes the first constraint a configuration document
// breaks. Line and Column point into the source file, they're zero when the
// document is empty.
type SchemaViolation struct {
	Path   string
	Line   int
	Column int
	Msg    string
}

func (v *SchemaViolation) Error() string {
	if v.Line == 0 {
		return fmt.Sprintf("%s: %s", v.Path, v.Msg)
	}
	return fmt.Sprintf("%s: %s (line %d, column %d)", v.Path, v.Msg, v.Line, v.Column)
}

// FailureKind classifies schema violations for the command line.
func (v *SchemaViolation) FailureKind() failure.Kind {
	return failure.SchemaViolation
}

// Validate checks a parsed YAML document against the configuration schema and
// returns the first violation found, or nil.
func Validate(doc *yaml.Node) error {
	errs := Violations(doc)
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// Violations returns every schema violation of a parsed YAML document.
func Violations(doc *yaml.Node) multierror.MultiError {
	v := &validator{}
	v.document(doc)
	return v.errs
}

type validator struct {
	errs multierror.MultiError
}

func (v *validator) fail(path string, n *yaml.Node, format string, args ...interface{}) {
	violation := &SchemaViolation{Path: path, Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		violation.Line, violation.Column = n.Line, n.Column
	}
	v.errs.Add(violation)
}

func (v *validator) document(doc *yaml.Node) {
	n := resolve(doc)
	if n != nil && n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			n = nil
		} else {
			n = resolve(n.Content[0])
		}
	}
	if n == nil || n.Kind == 0 || isNull(n) {
		v.fail(rootPath, nil, "configuration document is empty")
		return
	}
	if n.Kind != yaml.MappingNode {
		v.fail(rootPath, n, "must be a mapping, got %s", describe(n))
		return
	}

	fields := mappingFields(n)

	version, ok := fields["version"]
	if !ok {
		v.fail(rootPath, n, "'version' is a required property")
	} else {
		v.str("version", version)
	}

	if defaults, ok := fields["defaults"]; ok {
		v.defaults("defaults", defaults)
	}

	dashboards, ok := fields["dashboards"]
	if !ok {
		v.fail(rootPath, n, "'dashboards' is a required property")
		return
	}
	items, ok := v.nonEmptySequence("dashboards", dashboards)
	if !ok {
		return
	}
	for i, item := range items {
		v.dashboard(fmt.Sprintf("dashboards[%d]", i), item)
	}
}

func (v *validator) defaults(path string, n *yaml.Node) {
	fields, ok := v.mapping(path, n)
	if !ok {
		return
	}
	if f, ok := fields["layout_type"]; ok {
		v.layoutType(path+".layout_type", f)
	}
	if f, ok := fields["refresh_interval"]; ok {
		v.nonNegativeInt(path+".refresh_interval", f)
	}
	if f, ok := fields["tags"]; ok {
		v.stringSequence(path+".tags", f)
	}
}

func (v *validator) dashboard(path string, n *yaml.Node) {
	fields, ok := v.mapping(path, n)
	if !ok {
		return
	}

	if f, ok := fields["name"]; ok {
		v.str(path+".name", f)
	} else {
		v.fail(path, n, "'name' is a required property")
	}
	if f, ok := fields["description"]; ok {
		v.str(path+".description", f)
	}
	if f, ok := fields["layout_type"]; ok {
		v.layoutType(path+".layout_type", f)
	}
	if f, ok := fields["tags"]; ok {
		v.stringSequence(path+".tags", f)
	}
	if f, ok := fields["refresh_interval"]; ok {
		v.nonNegativeInt(path+".refresh_interval", f)
	}

	if f, ok := fields["widgets"]; ok {
		if widgets, ok := v.nonEmptySequence(path+".widgets", f); ok {
			for i, w := range widgets {
				v.widget(fmt.Sprintf("%s.widgets[%d]", path, i), w)
			}
		}
	} else {
		v.fail(path, n, "'widgets' is a required property")
	}

	if f, ok := fields["template_variables"]; ok {
		if vars, ok := v.sequence(path+".template_variables", f); ok {
			for i, tv := range vars {
				v.templateVariable(fmt.Sprintf("%s.template_variables[%d]", path, i), tv)
			}
		}
	}
}

func (v *validator) widget(path string, n *yaml.Node) {
	fields, ok := v.mapping(path, n)
	if !ok {
		return
	}
	for _, required := range []string{"title", "type"} {
		if f, ok := fields[required]; ok {
			v.str(path+"."+required, f)
		} else {
			v.fail(path, n, "'%s' is a required property", required)
		}
	}
	for _, optional := range []string{"query", "size"} {
		if f, ok := fields[optional]; ok {
			v.str(path+"."+optional, f)
		}
	}
	if f, ok := fields["visualization"]; ok {
		v.mapping(path+".visualization", f)
	}
	for _, key := range []string{"conditional_formats", "custom_links"} {
		f, ok := fields[key]
		if !ok {
			continue
		}
		items, ok := v.sequence(path+"."+key, f)
		if !ok {
			continue
		}
		for i, item := range items {
			v.mapping(fmt.Sprintf("%s.%s[%d]", path, key, i), item)
		}
	}
}

func (v *validator) templateVariable(path string, n *yaml.Node) {
	fields, ok := v.mapping(path, n)
	if !ok {
		return
	}
	if f, ok := fields["name"]; ok {
		v.str(path+".name", f)
	} else {
		v.fail(path, n, "'name' is a required property")
	}
	for _, optional := range []string{"prefix", "default"} {
		if f, ok := fields[optional]; ok {
			v.str(path+"."+optional, f)
		}
	}
}

func (v *validator) mapping(path string, n *yaml.Node) (map[string]*yaml.Node, bool) {
	if n.Kind != yaml.MappingNode {
		v.fail(path, n, "must be a mapping, got %s", describe(n))
		return nil, false
	}
	return mappingFields(n), true
}

func (v *validator) sequence(path string, n *yaml.Node) ([]*yaml.Node, bool) {
	if n.Kind != yaml.SequenceNode {
		v.fail(path, n, "must be a list, got %s", describe(n))
		return nil, false
	}
	items := make([]*yaml.Node, 0, len(n.Content))
	for _, item := range n.Content {
		items = append(items, resolve(item))
	}
	return items, true
}

func (v *validator) nonEmptySequence(path string, n *yaml.Node) ([]*yaml.Node, bool) {
	items, ok := v.sequence(path, n)
	if !ok {
		return nil, false
	}
	if len(items) == 0 {
		v.fail(path, n, "must contain at least one item")
		return nil, false
	}
	return items, true
}

func (v *validator) str(path string, n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		v.fail(path, n, "must be a string, got %s", describe(n))
		return false
	}
	return true
}

func (v *validator) stringSequence(path string, n *yaml.Node) {
	items, ok := v.sequence(path, n)
	if !ok {
		return
	}
	for i, item := range items {
		v.str(fmt.Sprintf("%s[%d]", path, i), item)
	}
}

func (v *validator) layoutType(path string, n *yaml.Node) {
	if !v.str(path, n) {
		return
	}
	if !LayoutType(n.Value).Valid() {
		v.fail(path, n, "%q is not one of [%s %s]", n.Value, LayoutOrdered, LayoutFree)
	}
}

func (v *validator) nonNegativeInt(path string, n *yaml.Node) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		v.fail(path, n, "must be an integer, got %s", describe(n))
		return
	}
	var i int64
	if err := n.Decode(&i); err != nil {
		v.fail(path, n, "must be an integer: %s", err)
		return
	}
	if i < 0 {
		v.fail(path, n, "%s is less than the minimum of 0", strconv.FormatInt(i, 10))
	}
}

// mappingFields indexes the values of a mapping node by key, following
// aliases and "<<" merge keys. Explicit keys win over merged ones. A mapping
// merged into itself, directly or not, is only visited once.
func mappingFields(n *yaml.Node) map[string]*yaml.Node {
	return mergedFields(n, map[*yaml.Node]bool{})
}

func mergedFields(n *yaml.Node, seen map[*yaml.Node]bool) map[string]*yaml.Node {
	seen[n] = true
	fields := make(map[string]*yaml.Node, len(n.Content)/2)
	var merged []*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], resolve(n.Content[i+1])
		if key.ShortTag() == "!!merge" {
			if value.Kind == yaml.SequenceNode {
				for _, m := range value.Content {
					merged = append(merged, resolve(m))
				}
			} else {
				merged = append(merged, value)
			}
			continue
		}
		fields[key.Value] = value
	}

	for _, m := range merged {
		if m == nil || m.Kind != yaml.MappingNode || seen[m] {
			continue
		}
		for k, value := range mergedFields(m, seen) {
			if _, exists := fields[k]; !exists {
				fields[k] = value
			}
		}
	}
	return fields
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func describe(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return "null"
		case "!!str":
			return fmt.Sprintf("string %q", n.Value)
		case "!!int":
			return "integer " + n.Value
		case "!!float":
			return "number " + n.Value
		case "!!bool":
			return "boolean " + n.Value
		}
		return n.ShortTag() + " " + n.Value
	}
	return "unknown node"
}
