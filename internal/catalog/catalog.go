package catalog

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_path_resolver.go -package=mocks chatsweep/internal/catalog PathResolver

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"chatsweep/internal/contextutil"
	"chatsweep/internal/store"
)

// PathCandidate is one absolute path to probe for a reference's media file.
type PathCandidate struct {
	Path string
	// Thumb marks thumbnail companions; they are acted on together with the
	// original but never decide whether the entry counts as present.
	Thumb bool
}

// PathResolver maps a file reference to candidate absolute paths.
// Device-layout knowledge lives behind this interface, outside the catalog.
type PathResolver interface {
	Candidates(ref store.FileReference) []PathCandidate
}

// ResolverFunc adapts a plain function to the PathResolver interface.
type ResolverFunc func(ref store.FileReference) []PathCandidate

// Candidates implements PathResolver.
func (f ResolverFunc) Candidates(ref store.FileReference) []PathCandidate {
	return f(ref)
}

// Entry is the joined, disk-resolved unit the filter and the action engine
// operate on. It references a file; it never owns one.
type Entry struct {
	ReferenceID int64
	GroupID     string
	DisplayName string
	GroupKind   store.GroupKind
	SentAt      time.Time
	FileName    string

	// AbsolutePath is the first existing candidate, empty while missing.
	// A successful move updates it to the destination.
	AbsolutePath string
	// ThumbPaths are existing thumbnail companions of AbsolutePath.
	ThumbPaths []string
	// ResidentBytes is the on-disk size of the file plus companions.
	ResidentBytes int64

	status Status
}

// Status returns the entry's lifecycle status.
func (e *Entry) Status() Status { return e.status }

// Transition advances the status lattice, rejecting regressions.
func (e *Entry) Transition(to Status) error {
	if !canTransition(e.status, to) {
		return fmt.Errorf("invalid status transition %v -> %v for reference %d", e.status, to, e.ReferenceID)
	}
	e.status = to
	return nil
}

// GroupStats aggregates one group's share of the catalog.
type GroupStats struct {
	GroupID       string
	DisplayName   string
	FileCount     int
	PresentCount  int
	MissingCount  int
	ResidentBytes int64
}

// Index is the session catalog: every file reference joined with its group
// and resolved against the disk. It is built once per session and reused;
// rebuilding after files have been acted on would re-resolve against a
// stale disk state, so callers must not build twice over one action run.
type Index struct {
	entries []*Entry
	byRef   map[int64]*Entry
}

// Build constructs the catalog from a record snapshot. Resolution stats each
// candidate path and keeps the first that exists; it performs no writes.
// References whose group id has no GroupInfo keep the raw id as display name
// and stay tagged Unknown.
func Build(ctx context.Context, src store.RecordSource, resolver PathResolver) (*Index, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	idx := &Index{byRef: make(map[int64]*Entry)}
	for _, ref := range src.Files() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		entry := &Entry{
			ReferenceID: ref.ReferenceID,
			GroupID:     ref.GroupID,
			DisplayName: ref.GroupID,
			GroupKind:   store.KindUnknown,
			SentAt:      ref.SentAt,
			FileName:    ref.FileName,
			status:      StatusMissing,
		}
		if g, ok := src.GroupByID(ref.GroupID); ok && ref.IsGroupChat() {
			entry.DisplayName = g.DisplayName
			entry.GroupKind = g.Kind
			if entry.DisplayName == "" {
				entry.DisplayName = g.GroupID
			}
		}

		// Thumbnails are collected independently of candidate order and only
		// attach once the original resolves; without an original the entry is
		// missing and companions are ignored.
		var (
			thumbs     []string
			thumbBytes int64
		)
		for _, cand := range resolver.Candidates(ref) {
			info, err := os.Stat(cand.Path)
			if err != nil || info.IsDir() {
				continue
			}
			if cand.Thumb {
				thumbs = append(thumbs, cand.Path)
				thumbBytes += info.Size()
				continue
			}
			if entry.AbsolutePath == "" {
				entry.AbsolutePath = cand.Path
				entry.ResidentBytes = info.Size()
				entry.status = StatusPresent
			}
		}
		if entry.AbsolutePath != "" {
			entry.ThumbPaths = thumbs
			entry.ResidentBytes += thumbBytes
		}

		idx.entries = append(idx.entries, entry)
		idx.byRef[entry.ReferenceID] = entry
	}

	logger.InfoContext(ctx, "catalog built",
		"entries", len(idx.entries),
		"elapsed", time.Since(start))
	return idx, nil
}

// Entries returns the catalog in reference-id order (the snapshot's order).
func (i *Index) Entries() []*Entry {
	out := make([]*Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

// EntryByReference looks up a single entry.
func (i *Index) EntryByReference(id int64) (*Entry, bool) {
	e, ok := i.byRef[id]
	return e, ok
}

// Len returns the number of catalog entries.
func (i *Index) Len() int { return len(i.entries) }

// GroupStats aggregates the catalog per group, largest resident footprint
// first; ties break on group id so the listing is stable.
func (i *Index) GroupStats() []GroupStats {
	byGroup := make(map[string]*GroupStats)
	var order []string
	for _, e := range i.entries {
		st, ok := byGroup[e.GroupID]
		if !ok {
			st = &GroupStats{GroupID: e.GroupID, DisplayName: e.DisplayName}
			byGroup[e.GroupID] = st
			order = append(order, e.GroupID)
		}
		st.FileCount++
		if e.Status() == StatusMissing {
			st.MissingCount++
		} else {
			st.PresentCount++
			st.ResidentBytes += e.ResidentBytes
		}
	}

	out := make([]GroupStats, 0, len(order))
	for _, id := range order {
		out = append(out, *byGroup[id])
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].ResidentBytes != out[b].ResidentBytes {
			return out[a].ResidentBytes > out[b].ResidentBytes
		}
		return out[a].GroupID < out[b].GroupID
	})
	return out
}
