// SPDX-License-Identifier: AGPL-3.0-only

package dashboard

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// LayoutType is the way widgets are arranged on a dashboard.
type LayoutType string

const (
	LayoutOrdered LayoutType = "ordered"
	LayoutFree    LayoutType = "free"
)

// DefaultLayoutType is used when neither the dashboard nor the defaults set one.
const DefaultLayoutType = LayoutOrdered

// Valid reports whether l is one of the layouts accepted by the remote service.
func (l LayoutType) Valid() bool {
	return l == LayoutOrdered || l == LayoutFree
}

// Config is a parsed dashboards configuration file.
type Config struct {
	Version    string      `yaml:"version" json:"version" jsonschema:"required"`
	Defaults   *Defaults   `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Dashboards []Dashboard `yaml:"dashboards" json:"dashboards" jsonschema:"required,minItems=1"`
}

// Defaults are inherited by every dashboard in a Config, see ApplyDefaults.
// A nil Tags slice means the key was absent.
type Defaults struct {
	LayoutType      LayoutType `yaml:"layout_type,omitempty" json:"layout_type,omitempty" jsonschema:"enum=ordered,enum=free"`
	RefreshInterval *int       `yaml:"refresh_interval,omitempty" json:"refresh_interval,omitempty" jsonschema:"minimum=0"`
	Tags            []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Dashboard is a single declared dashboard. Name is matched against the title
// of the remote dashboards.
type Dashboard struct {
	Name              string             `yaml:"name" json:"name" jsonschema:"required"`
	Description       string             `yaml:"description,omitempty" json:"description,omitempty"`
	LayoutType        LayoutType         `yaml:"layout_type,omitempty" json:"layout_type,omitempty" jsonschema:"enum=ordered,enum=free"`
	Tags              []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
	RefreshInterval   *int               `yaml:"refresh_interval,omitempty" json:"refresh_interval,omitempty" jsonschema:"minimum=0"`
	Widgets           []Widget           `yaml:"widgets" json:"widgets" jsonschema:"required,minItems=1"`
	TemplateVariables []TemplateVariable `yaml:"template_variables,omitempty" json:"template_variables,omitempty"`
}

// Widget is a dashboard widget. Only Title and Type are interpreted, everything
// else is sent to the remote service as written, including keys ddtool doesn't
// know about (kept in Extra).
type Widget struct {
	Title              string                   `yaml:"title" json:"title" jsonschema:"required"`
	Type               string                   `yaml:"type" json:"type" jsonschema:"required"`
	Query              string                   `yaml:"query,omitempty" json:"query,omitempty"`
	Size               string                   `yaml:"size,omitempty" json:"size,omitempty"`
	Visualization      map[string]interface{}   `yaml:"visualization,omitempty" json:"visualization,omitempty"`
	ConditionalFormats []map[string]interface{} `yaml:"conditional_formats,omitempty" json:"conditional_formats,omitempty"`
	CustomLinks        []map[string]interface{} `yaml:"custom_links,omitempty" json:"custom_links,omitempty"`

	Extra map[string]interface{} `yaml:",inline" json:"-"`
}

// MarshalJSON flattens Extra next to the known widget fields.
func (w Widget) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(w.Extra)+7)
	for k, v := range w.Extra {
		out[k] = v
	}
	out["title"] = w.Title
	out["type"] = w.Type
	if w.Query != "" {
		out["query"] = w.Query
	}
	if w.Size != "" {
		out["size"] = w.Size
	}
	if w.Visualization != nil {
		out["visualization"] = w.Visualization
	}
	if w.ConditionalFormats != nil {
		out["conditional_formats"] = w.ConditionalFormats
	}
	if w.CustomLinks != nil {
		out["custom_links"] = w.CustomLinks
	}
	return json.Marshal(out)
}

// TemplateVariable is a dashboard scoped variable substituted by the remote
// service into widget queries. Like widgets, it's sent as written: keys other
// than Name, Prefix and Default are kept in Extra, and an explicitly empty
// prefix or default is kept too.
type TemplateVariable struct {
	Name    string  `yaml:"name" json:"name" jsonschema:"required"`
	Prefix  *string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Default *string `yaml:"default,omitempty" json:"default,omitempty"`

	Extra map[string]interface{} `yaml:",inline" json:"-"`
}

// MarshalJSON flattens Extra next to the known template variable fields.
func (v TemplateVariable) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(v.Extra)+3)
	for k, val := range v.Extra {
		out[k] = val
	}
	out["name"] = v.Name
	if v.Prefix != nil {
		out["prefix"] = *v.Prefix
	}
	if v.Default != nil {
		out["default"] = *v.Default
	}
	return json.Marshal(out)
}
