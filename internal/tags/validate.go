package tags

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/prompthub/internal/models"
)

// MaxNameLength bounds tag names, in runes.
const MaxNameLength = 40

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsColor reports whether c is a preset color name or a #RRGGBB value.
func IsColor(c string) bool {
	for _, p := range models.TagColors {
		if c == p {
			return true
		}
	}
	return hexColorRe.MatchString(c)
}

// Validate checks a tag about to be created. The returned error is a
// validation.Errors keyed by JSON field name.
func Validate(name, color string) error {
	return validation.Errors{
		"name": validation.Validate(strings.TrimSpace(name),
			validation.Required.Error("name is required"),
			validation.RuneLength(1, MaxNameLength).Error("name must be at most 40 characters")),
		"color": validation.Validate(color,
			validation.Required.Error("color is required"),
			validation.By(func(any) error {
				if !IsColor(color) {
					return validation.NewError("validation_tag_color", "color must be a preset name or #RRGGBB")
				}
				return nil
			})),
	}.Filter()
}
