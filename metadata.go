package autocurator

import (
	"bytes"
	"strings"
	"time"

	"github.com/bep/imagemeta"
)

// CaptureMeta holds the EXIF capture fields surfaced in diagnostics and the
// ranked-results document.
type CaptureMeta struct {
	TakenAt     time.Time // zero when the file carries no capture timestamp
	CameraMake  string
	CameraModel string
}

// Camera returns "Make Model" with whichever parts are present.
func (m *CaptureMeta) Camera() string {
	if m == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(m.CameraMake) + " " + strings.TrimSpace(m.CameraModel))
}

// wantedEXIFTags lists the capture tags we care about.
var wantedEXIFTags = map[string]bool{
	"DateTimeOriginal": true,
	"DateTime":         true,
	"Make":             true,
	"Model":            true,
}

// exifTimeLayout is the EXIF "YYYY:MM:DD HH:MM:SS" timestamp format.
const exifTimeLayout = "2006:01:02 15:04:05"

// ExtractCaptureMeta parses EXIF capture metadata from raw image bytes.
// Returns nil if the data is empty, carries no EXIF, or cannot be parsed.
// Graceful degradation: never returns an error.
func ExtractCaptureMeta(data []byte) *CaptureMeta {
	if len(data) == 0 {
		return nil
	}

	meta := &CaptureMeta{}
	found := false

	_, err := imagemeta.Decode(imagemeta.Options{
		R:       bytes.NewReader(data),
		Sources: imagemeta.EXIF,
		ShouldHandleTag: func(ti imagemeta.TagInfo) bool {
			return wantedEXIFTags[ti.Tag]
		},
		HandleTag: func(ti imagemeta.TagInfo) error {
			switch ti.Tag {
			case "DateTimeOriginal", "DateTime":
				if !meta.TakenAt.IsZero() && ti.Tag == "DateTime" {
					return nil // DateTimeOriginal wins over DateTime
				}
				if t := tagValueTime(ti.Value); !t.IsZero() {
					meta.TakenAt = t
					found = true
				}
			case "Make":
				if s := tagValueString(ti.Value); s != "" {
					meta.CameraMake = s
					found = true
				}
			case "Model":
				if s := tagValueString(ti.Value); s != "" {
					meta.CameraModel = s
					found = true
				}
			}
			return nil
		},
	})

	if err != nil || !found {
		return nil
	}
	return meta
}

// tagValueTime extracts a timestamp from a tag value, accepting both decoded
// time.Time values and raw EXIF timestamp strings.
func tagValueTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case string:
		if t, err := time.Parse(exifTimeLayout, strings.TrimSpace(val)); err == nil {
			return t
		}
	}
	return time.Time{}
}

// tagValueString extracts a string from a tag value.
func tagValueString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []string:
		if len(val) > 0 {
			return strings.TrimSpace(val[0])
		}
	case []any:
		if len(val) > 0 {
			if s, ok := val[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
