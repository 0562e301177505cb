package media

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/starford/prompthub/internal/models"
)

// SniffLen is how much of a file CheckContent needs to see.
const SniffLen = 512

// Formats maps the accepted file extensions to their media type.
var Formats = map[string]models.MediaType{
	".png": models.MediaImage, ".jpg": models.MediaImage, ".jpeg": models.MediaImage,
	".gif": models.MediaImage, ".webp": models.MediaImage, ".heic": models.MediaImage,
	".mp4": models.MediaVideo, ".mov": models.MediaVideo, ".webm": models.MediaVideo,
}

var mimeExt = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"video/mp4":       ".mp4",
	"video/quicktime": ".mov",
	"video/webm":      ".webm",
}

// ISO base media brands that http.DetectContentType does not report.
var ftypBrands = map[string]string{
	"qt  ": ".mov",
	"heic": ".heic", "heix": ".heic", "heim": ".heic", "heis": ".heic",
	"hevc": ".heic", "hevx": ".heic", "mif1": ".heic", "msf1": ".heic",
}

// ExtForMIME returns the extension for a Content-Type value, or "" when the
// type is not an accepted media format.
func ExtForMIME(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	return mimeExt[strings.ToLower(strings.TrimSpace(mime))]
}

// DetectFormat returns the extension matching the leading bytes of a file,
// or "" when they are not a known image or video.
func DetectFormat(head []byte) string {
	if ext := ExtForMIME(http.DetectContentType(head)); ext != "" {
		return ext
	}
	if len(head) >= 12 && string(head[4:8]) == "ftyp" {
		return ftypBrands[string(head[8:12])]
	}
	return ""
}

// CheckContent verifies that head starts a media file of type t. When ext is
// not empty the content must also match that extension.
func CheckContent(head []byte, ext string, t models.MediaType) error {
	ext = strings.ToLower(ext)
	if ext != "" {
		if _, ok := Formats[ext]; !ok {
			return fmt.Errorf("media: unsupported format %q", ext)
		}
	}

	detected := DetectFormat(head)
	if detected == "" {
		return fmt.Errorf("media: content is not an image or video (detected %s)", http.DetectContentType(head))
	}
	if kind := Formats[detected]; kind != t {
		return fmt.Errorf("media: content is %s, not %s", kind, t)
	}
	if ext != "" && family(ext) != family(detected) {
		return fmt.Errorf("media: content does not match extension %s (detected %s)", ext, detected)
	}
	return nil
}

// family folds extensions that name the same container.
func family(ext string) string {
	switch ext {
	case ".jpeg":
		return ".jpg"
	case ".mov":
		return ".mp4"
	}
	return ext
}
