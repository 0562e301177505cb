// Package filter computes the visible subsets of the model and prompt
// catalogs. Every function is pure: inputs are never modified and catalog
// order is preserved.
package filter

import (
	"sort"
	"strings"

	"github.com/starford/prompthub/internal/models"
)

// Models returns the models visible under f and the free-text search.
func Models(all []models.ModelConfig, f models.ModelFilter, search string) []models.ModelConfig {
	text := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.ModelConfig, 0, len(all))
	for _, m := range all {
		if MatchModel(m, f, text) {
			out = append(out, m)
		}
	}
	return out
}

// MatchModel applies every filter dimension to one model. text must already
// be trimmed and lowercased.
func MatchModel(m models.ModelConfig, f models.ModelFilter, text string) bool {
	if text != "" && !strings.Contains(strings.ToLower(m.Name), text) {
		return false
	}
	if len(f.SelectedTypes) > 0 && !f.HasType(m.Type) {
		return false
	}
	return matchVendor(m, f)
}

func matchVendor(m models.ModelConfig, f models.ModelFilter) bool {
	if len(f.SelectedVendors) == 0 && len(f.SelectedCustomVendorNames) == 0 {
		return true
	}
	if m.Vendor == models.VendorCustom {
		name := strings.TrimSpace(m.CustomVendor())
		return name != "" && f.HasCustomVendor(name)
	}
	return f.HasVendor(m.Vendor)
}

// VendorOptions is the vendor choice list offered to the user.
type VendorOptions struct {
	Vendors           []models.ModelVendor `json:"vendors"`
	CustomVendorNames []string             `json:"customVendorNames"`
}

// Total is the number of selectable vendor options.
func (o VendorOptions) Total() int {
	return len(o.Vendors) + len(o.CustomVendorNames)
}

// AvailableVendors lists the built-in vendors present in the catalog in
// declaration order, plus the distinct custom vendor names sorted
// case-insensitively.
func AvailableVendors(all []models.ModelConfig) VendorOptions {
	present := make(map[models.ModelVendor]bool)
	custom := make(map[string]struct{})
	for _, m := range all {
		if m.Vendor == models.VendorCustom {
			if name := strings.TrimSpace(m.CustomVendor()); name != "" {
				custom[name] = struct{}{}
			}
			continue
		}
		present[m.Vendor] = true
	}

	opts := VendorOptions{Vendors: []models.ModelVendor{}, CustomVendorNames: make([]string, 0, len(custom))}
	for _, v := range models.AllVendors {
		if v != models.VendorCustom && present[v] {
			opts.Vendors = append(opts.Vendors, v)
		}
	}
	for name := range custom {
		opts.CustomVendorNames = append(opts.CustomVendorNames, name)
	}
	sort.Slice(opts.CustomVendorNames, func(i, j int) bool {
		a, b := strings.ToLower(opts.CustomVendorNames[i]), strings.ToLower(opts.CustomVendorNames[j])
		if a == b {
			return opts.CustomVendorNames[i] < opts.CustomVendorNames[j]
		}
		return a < b
	})
	return opts
}

// ToggleType returns a copy of f with t switched on or off. Selecting every
// model type collapses the dimension back to empty (no filter).
func ToggleType(f models.ModelFilter, t models.ModelType, on bool) models.ModelFilter {
	next := f.Clone()
	if on {
		next.SelectedTypes[t] = struct{}{}
	} else {
		delete(next.SelectedTypes, t)
	}
	return collapseTypes(next)
}

// ToggleVendor returns a copy of f with vendor v switched. When built-in and
// custom selections together cover every available option, both vendor sets
// collapse to empty.
func ToggleVendor(f models.ModelFilter, v models.ModelVendor, on bool, opts VendorOptions) models.ModelFilter {
	next := f.Clone()
	if on {
		next.SelectedVendors[v] = struct{}{}
	} else {
		delete(next.SelectedVendors, v)
	}
	return collapseVendors(next, opts)
}

// ToggleCustomVendor is ToggleVendor for a custom vendor name.
func ToggleCustomVendor(f models.ModelFilter, name string, on bool, opts VendorOptions) models.ModelFilter {
	next := f.Clone()
	name = strings.TrimSpace(name)
	if on && name != "" {
		next.SelectedCustomVendorNames[name] = struct{}{}
	} else {
		delete(next.SelectedCustomVendorNames, name)
	}
	return collapseVendors(next, opts)
}

// ClearTypes selects "all types".
func ClearTypes(f models.ModelFilter) models.ModelFilter {
	next := f.Clone()
	next.SelectedTypes = map[models.ModelType]struct{}{}
	return next
}

// ClearVendors selects "all vendors".
func ClearVendors(f models.ModelFilter) models.ModelFilter {
	next := f.Clone()
	next.SelectedVendors = map[models.ModelVendor]struct{}{}
	next.SelectedCustomVendorNames = map[string]struct{}{}
	return next
}

// Collapse applies both auto-collapse rules to an arbitrary filter, e.g. one
// about to be persisted.
func Collapse(f models.ModelFilter, opts VendorOptions) models.ModelFilter {
	return collapseVendors(collapseTypes(f.Clone()), opts)
}

func collapseTypes(f models.ModelFilter) models.ModelFilter {
	if len(f.SelectedTypes) == len(models.AllModelTypes) {
		f.SelectedTypes = map[models.ModelType]struct{}{}
	}
	return f
}

func collapseVendors(f models.ModelFilter, opts VendorOptions) models.ModelFilter {
	total := opts.Total()
	if total > 0 && f.VendorSelectionCount() == total {
		f.SelectedVendors = map[models.ModelVendor]struct{}{}
		f.SelectedCustomVendorNames = map[string]struct{}{}
	}
	return f
}
