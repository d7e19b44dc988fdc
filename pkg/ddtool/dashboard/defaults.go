// SPDX-License-Identifier: AGPL-3.0-only

package dashboard

import (
	"sort"
)

// ApplyDefaults merges cfg.Defaults into every dashboard, in place:
//   - layout_type is only filled in when the dashboard doesn't set one,
//   - tags become the union of the dashboard's and the default tags,
//   - refresh_interval is always replaced by the default one.
//
// A config without defaults is left untouched.
func ApplyDefaults(cfg *Config) {
	defaults := cfg.Defaults
	if defaults == nil {
		return
	}

	for i := range cfg.Dashboards {
		d := &cfg.Dashboards[i]

		if d.LayoutType == "" && defaults.LayoutType != "" {
			d.LayoutType = defaults.LayoutType
		}

		if defaults.Tags != nil {
			d.Tags = unionTags(d.Tags, defaults.Tags)
		}

		if defaults.RefreshInterval != nil {
			interval := *defaults.RefreshInterval
			d.RefreshInterval = &interval
		}
	}
}

// unionTags returns the sorted set union of a and b.
func unionTags(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		set[t] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
