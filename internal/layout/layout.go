// Package layout knows how the chat application arranges media on disk.
// Originals live under "<root>/<YYYY-MM>/Ori" with thumbnail variants under
// a sibling "Thumb" directory; the month bucket comes from the send time.
package layout

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"chatsweep/internal/catalog"
	"chatsweep/internal/store"
)

// MediaLayout resolves file references against one or more device roots.
// It implements catalog.PathResolver.
type MediaLayout struct {
	roots []string
}

// NewMediaLayout returns a resolver probing the given roots in order.
func NewMediaLayout(roots ...string) *MediaLayout {
	return &MediaLayout{roots: roots}
}

// Candidates returns the paths to probe for a reference: the recorded
// relative path, the month-bucketed original, then thumbnail variants.
func (l *MediaLayout) Candidates(ref store.FileReference) []catalog.PathCandidate {
	if ref.FileName == "" && ref.RelPath == "" {
		return nil
	}

	bucket := MonthBucket(ref.SentAt)
	var out []catalog.PathCandidate
	for _, root := range l.roots {
		if ref.RelPath != "" {
			out = append(out, catalog.PathCandidate{Path: filepath.Join(root, filepath.FromSlash(ref.RelPath))})
		}
		if ref.FileName != "" {
			out = append(out, catalog.PathCandidate{Path: filepath.Join(root, bucket, "Ori", ref.FileName)})
			for _, thumb := range ThumbNames(ref.FileName) {
				out = append(out, catalog.PathCandidate{Path: filepath.Join(root, bucket, "Thumb", thumb), Thumb: true})
			}
		}
	}
	return out
}

// MonthBucket returns the "YYYY-MM" directory for a send time.
func MonthBucket(ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("%04d-%02d", ts.Year(), int(ts.Month()))
}

// ThumbNames returns the thumbnail variants the application writes alongside
// an original: "<name>_0<ext>" and "<name>_720<ext>".
func ThumbNames(fileName string) []string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	return []string{
		base + "_0" + ext,
		base + "_720" + ext,
	}
}
