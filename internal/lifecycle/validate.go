package lifecycle

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/five82/reel/internal/fal"
)

// MediaKind describes the media-specific checks for one input URL.
type MediaKind struct {
	Label      string   // "Image URL"
	Noun       string   // "image"
	Formats    string   // human list for messages
	Extensions []string // lower-case, with leading dot
}

var (
	ImageMedia = MediaKind{
		Label:      "Image URL",
		Noun:       "image",
		Formats:    "JPG, PNG, WebP",
		Extensions: []string{".jpg", ".jpeg", ".png", ".webp"},
	}
	AudioMedia = MediaKind{
		Label:      "Audio URL",
		Noun:       "audio",
		Formats:    "MP3, WAV, M4A, AAC",
		Extensions: []string{".mp3", ".wav", ".m4a", ".aac"},
	}
)

// ValidateURL checks that raw is an absolute http or https URL.
func ValidateURL(raw, label string) error {
	if strings.TrimSpace(raw) == "" {
		return validationError(label + " is required")
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return validationError("Invalid " + lowerFirst(label) + " format")
	}
	return nil
}

// ValidateMediaURL runs ValidateURL and then requires one of kind's file
// extensions somewhere in the path. CDN links without an extension fail this
// check, which is why Validator only applies it when StrictExtensions is set.
func ValidateMediaURL(raw string, kind MediaKind) error {
	if err := ValidateURL(raw, kind.Label); err != nil {
		return err
	}
	u, _ := url.Parse(strings.TrimSpace(raw))
	path := strings.ToLower(u.Path)
	for _, ext := range kind.Extensions {
		if strings.Contains(path, ext) {
			return nil
		}
	}
	return validationError(kind.Label + " must point to a valid " + kind.Noun + " file (" + kind.Formats + ")")
}

// Validator checks a GenerationRequest before anything is sent.
type Validator struct {
	StrictExtensions bool
}

// Validate returns a validation *Error for the first problem found.
func (v Validator) Validate(req GenerationRequest) error {
	if strings.TrimSpace(req.Model) == "" {
		return validationError("Model is required")
	}
	for _, input := range []struct {
		raw  string
		kind MediaKind
	}{
		{req.ImageURL, ImageMedia},
		{req.AudioURL, AudioMedia},
	} {
		var err error
		if v.StrictExtensions {
			err = ValidateMediaURL(input.raw, input.kind)
		} else {
			err = ValidateURL(input.raw, input.kind.Label)
		}
		if err != nil {
			return err
		}
	}
	if _, err := fal.ParseResolution(string(req.Resolution)); err != nil {
		return validationError(err.Error())
	}
	if _, err := fal.ParseAspectRatio(string(req.AspectRatio)); err != nil {
		return validationError(err.Error())
	}
	return nil
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
