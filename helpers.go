package autocurator

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
)

// EncodeBase64 encodes bytes to a base64 string.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DataURL creates a data: URI for an already-encoded image.
func DataURL(img EncodedImage) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MIMEType, img.Base64)
}

// mimeTypeForFile maps a file name to its image MIME type by extension.
func mimeTypeForFile(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
