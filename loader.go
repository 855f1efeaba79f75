package autocurator

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// largeFileBytes is the size above which a photo triggers a warning. Local
// vision backends tend to choke on payloads beyond this.
const largeFileBytes = 20 << 20 // 20MB

// DefaultExtensions returns the supported image file extensions.
func DefaultExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".webp", ".gif"}
}

// loadFolder enumerates supported image files in folder and produces a
// PhotoRecord per decodable file. Corrupted files are skipped with a recorded
// failure; they never abort the run. The returned order is enumeration order
// and carries no contract — downstream sorts use explicit keys.
func (cfg *Config) loadFolder(folder string) ([]*PhotoRecord, []FileFailure, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}

	supported := make(map[string]bool, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		supported[strings.ToLower(ext)] = true
	}

	var records []*PhotoRecord
	var failures []FileFailure
	found := 0

	for _, entry := range entries {
		if entry.IsDir() || !supported[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		found++

		path := filepath.Join(folder, entry.Name())
		rec, ferr := loadPhoto(path, entry.Name())
		if ferr != nil {
			slog.Warn("autocurator: skipping unreadable file", "file", entry.Name(), "reason", ferr.Reason)
			failures = append(failures, *ferr)
			continue
		}
		records = append(records, rec)
	}

	if found == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoImagesFound, folder)
	}
	return records, failures, nil
}

// loadPhoto reads and decode-validates a single file. The decoded image is
// kept on the record until fingerprinting releases it.
func loadPhoto(path, name string) (*PhotoRecord, *FileFailure) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileFailure{File: name, Stage: "decode", Reason: err.Error()}
	}
	if len(data) > largeFileBytes {
		slog.Warn("autocurator: large file", "file", name, "bytes", len(data))
	}

	// Orientation-aware decode so burst shots rotated by the camera still
	// fingerprint identically.
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &FileFailure{File: name, Stage: "decode", Reason: "undecodable image: " + err.Error()}
	}

	return &PhotoRecord{
		Path:    path,
		Name:    name,
		Data:    data,
		Size:    int64(len(data)),
		Meta:    ExtractCaptureMeta(data),
		GroupID: -1,
		decoded: img,
	}, nil
}
