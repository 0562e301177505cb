package models

import (
	"encoding/json"
	"sort"
)

// ModelFilter is the persisted model-catalog filter selection.
// An empty set in a dimension means no filtering on that dimension.
type ModelFilter struct {
	SelectedTypes             map[ModelType]struct{}
	SelectedVendors           map[ModelVendor]struct{}
	SelectedCustomVendorNames map[string]struct{}
}

// IsEmpty reports whether no dimension filters anything.
func (f ModelFilter) IsEmpty() bool {
	return len(f.SelectedTypes) == 0 && len(f.SelectedVendors) == 0 && len(f.SelectedCustomVendorNames) == 0
}

// ActiveCount is the number of individual selections across all dimensions.
func (f ModelFilter) ActiveCount() int {
	return len(f.SelectedTypes) + len(f.SelectedVendors) + len(f.SelectedCustomVendorNames)
}

// HasType reports whether t is selected.
func (f ModelFilter) HasType(t ModelType) bool {
	_, ok := f.SelectedTypes[t]
	return ok
}

// HasVendor reports whether v is selected.
func (f ModelFilter) HasVendor(v ModelVendor) bool {
	_, ok := f.SelectedVendors[v]
	return ok
}

// HasCustomVendor reports whether the custom vendor name is selected.
func (f ModelFilter) HasCustomVendor(name string) bool {
	_, ok := f.SelectedCustomVendorNames[name]
	return ok
}

// VendorSelectionCount counts built-in and custom vendor selections together.
func (f ModelFilter) VendorSelectionCount() int {
	return len(f.SelectedVendors) + len(f.SelectedCustomVendorNames)
}

// Clone returns a copy that shares no maps with f.
func (f ModelFilter) Clone() ModelFilter {
	c := ModelFilter{
		SelectedTypes:             make(map[ModelType]struct{}, len(f.SelectedTypes)),
		SelectedVendors:           make(map[ModelVendor]struct{}, len(f.SelectedVendors)),
		SelectedCustomVendorNames: make(map[string]struct{}, len(f.SelectedCustomVendorNames)),
	}
	for k := range f.SelectedTypes {
		c.SelectedTypes[k] = struct{}{}
	}
	for k := range f.SelectedVendors {
		c.SelectedVendors[k] = struct{}{}
	}
	for k := range f.SelectedCustomVendorNames {
		c.SelectedCustomVendorNames[k] = struct{}{}
	}
	return c
}

// Types returns the selected types in declaration order.
func (f ModelFilter) Types() []ModelType {
	out := make([]ModelType, 0, len(f.SelectedTypes))
	for _, t := range AllModelTypes {
		if f.HasType(t) {
			out = append(out, t)
		}
	}
	return out
}

// Vendors returns the selected built-in vendors in declaration order.
func (f ModelFilter) Vendors() []ModelVendor {
	out := make([]ModelVendor, 0, len(f.SelectedVendors))
	for _, v := range AllVendors {
		if f.HasVendor(v) {
			out = append(out, v)
		}
	}
	return out
}

// CustomVendorNames returns the selected custom vendor names sorted.
func (f ModelFilter) CustomVendorNames() []string {
	out := make([]string, 0, len(f.SelectedCustomVendorNames))
	for k := range f.SelectedCustomVendorNames {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type modelFilterJSON struct {
	SelectedTypes             []ModelType   `json:"selectedTypes"`
	SelectedVendors           []ModelVendor `json:"selectedVendors"`
	SelectedCustomVendorNames []string      `json:"selectedCustomVendorNames"`
}

// MarshalJSON encodes each set as an ordered array so output is stable.
func (f ModelFilter) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelFilterJSON{
		SelectedTypes:             f.Types(),
		SelectedVendors:           f.Vendors(),
		SelectedCustomVendorNames: f.CustomVendorNames(),
	})
}

// UnmarshalJSON decodes arrays into sets. Unknown enum values are dropped.
func (f *ModelFilter) UnmarshalJSON(data []byte) error {
	var raw modelFilterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = NewModelFilter()
	for _, t := range raw.SelectedTypes {
		if t.Valid() {
			f.SelectedTypes[t] = struct{}{}
		}
	}
	for _, v := range raw.SelectedVendors {
		if v.Valid() && v != VendorCustom {
			f.SelectedVendors[v] = struct{}{}
		}
	}
	for _, n := range raw.SelectedCustomVendorNames {
		if n != "" {
			f.SelectedCustomVendorNames[n] = struct{}{}
		}
	}
	return nil
}

// NewModelFilter returns an empty filter with allocated sets.
func NewModelFilter() ModelFilter {
	return ModelFilter{
		SelectedTypes:             map[ModelType]struct{}{},
		SelectedVendors:           map[ModelVendor]struct{}{},
		SelectedCustomVendorNames: map[string]struct{}{},
	}
}
