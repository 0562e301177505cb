package modelstore

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/prompthub/internal/models"
)

// Normalize trims names and drops the custom vendor name unless the vendor
// is custom.
func Normalize(m models.ModelConfig) models.ModelConfig {
	m.Name = strings.TrimSpace(m.Name)
	if m.Vendor != models.VendorCustom {
		m.CustomVendorName = nil
		return m
	}
	if m.CustomVendorName != nil {
		v := strings.TrimSpace(*m.CustomVendorName)
		m.CustomVendorName = &v
	}
	return m
}

type draft struct {
	Name             string
	Type             models.ModelType
	Vendor           models.ModelVendor
	CustomVendorName string
}

// Validate checks the editor rules on a normalized model. The returned error
// is a validation.Errors keyed by JSON field name.
func Validate(m models.ModelConfig) error {
	d := draft{
		Name:             strings.TrimSpace(m.Name),
		Type:             m.Type,
		Vendor:           m.Vendor,
		CustomVendorName: strings.TrimSpace(m.CustomVendor()),
	}
	return validation.Errors{
		"name": validation.Validate(d.Name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, models.MaxNameLength).Error("name must be at most 40 characters")),
		"type": validation.Validate(d.Type,
			validation.Required, validation.In(anySlice(models.AllModelTypes)...).Error("unknown model type")),
		"vendor": validation.Validate(d.Vendor,
			validation.Required, validation.In(anySlice(models.AllVendors)...).Error("unknown vendor")),
		"customVendorName": validation.Validate(d.CustomVendorName,
			validation.When(d.Vendor == models.VendorCustom,
				validation.Required.Error("custom vendor name is required"),
				validation.RuneLength(1, models.MaxNameLength).Error("custom vendor name must be at most 40 characters"),
			)),
	}.Filter()
}

func anySlice[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
