// Package action executes delete and archive operations over a selection of
// catalog entries. Entries are processed in selection order, one failure
// never aborts the batch, and re-running the same selection skips work that
// already completed.
package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"chatsweep/internal/catalog"
	"chatsweep/internal/contextutil"
	"chatsweep/internal/layout"
)

// Kind selects the operation an Apply run performs.
type Kind int

const (
	KindDelete Kind = iota
	KindMove
)

func (k Kind) String() string {
	if k == KindMove {
		return "move"
	}
	return "delete"
}

// Action is the operation plus its parameters.
type Action struct {
	Kind Kind
	// DestRoot is the archive root for moves.
	DestRoot string
	// Flatten collapses the archive layout to bare file names under DestRoot.
	Flatten bool
}

// Delete removes files and their thumbnail companions.
func Delete() Action { return Action{Kind: KindDelete} }

// MoveTo archives files under destRoot, preserving the
// "<group>/<month>/{Ori,Thumb}" structure.
func MoveTo(destRoot string) Action { return Action{Kind: KindMove, DestRoot: destRoot} }

// Options tune one Apply run.
type Options struct {
	// DryRun validates every entry without touching the filesystem.
	DryRun bool
	// Workers >1 spreads independent entries over a bounded pool. The report
	// stays in selection order regardless.
	Workers int
}

// Engine applies actions to catalog entries. It is the only writer of entry
// status; nothing else mutates the catalog during a session.
type Engine struct{}

// NewEngine returns an action engine.
func NewEngine() *Engine { return &Engine{} }

// Apply runs the action over the selection and returns the audited report.
// Fatal errors are limited to invalid arguments; everything that happens to
// an individual entry is captured in the report instead. Cancellation is
// cooperative: the batch stops between entries, already-completed entries
// stay done, and anything caught mid-flight settles as failed.
func (e *Engine) Apply(ctx context.Context, selection []*catalog.Entry, act Action, opts Options) (*Report, error) {
	if act.Kind == KindMove && act.DestRoot == "" {
		return nil, errors.New("move requires a destination root")
	}

	logger := contextutil.LoggerFromContext(ctx)
	report := newReport(act.Kind.String(), opts.DryRun)

	results := make([]EntryResult, len(selection))
	for i, entry := range selection {
		results[i] = EntryResult{
			ReferenceID: entry.ReferenceID,
			GroupID:     entry.GroupID,
			Path:        entry.AbsolutePath,
			Outcome:     OutcomeNone,
		}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	// Two workers must never share a source or a destination path.
	// Flattened roots collapse the layout, so they serialize outright;
	// otherwise a selection serializes when two entries resolve to the same
	// source or archive into the same destination.
	if act.Flatten || hasPathCollision(selection) || hasDestCollision(selection, act) {
		workers = 1
	}

	if workers == 1 {
		for i, entry := range selection {
			select {
			case <-ctx.Done():
				report.Interrupted = true
			default:
				results[i] = e.applyOne(ctx, entry, act, opts.DryRun)
				continue
			}
			break
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = e.applyOne(ctx, selection[i], act, opts.DryRun)
				}
			}()
		}
	feed:
		for i := range selection {
			select {
			case <-ctx.Done():
				report.Interrupted = true
				break feed
			case jobs <- i:
			}
		}
		close(jobs)
		wg.Wait()
	}

	settle(selection, results)

	for _, res := range results {
		report.add(res)
	}
	report.FinishedAt = time.Now().UTC()

	logger.InfoContext(ctx, "action batch finished",
		"report_id", report.ID,
		"action", report.Action,
		"dry_run", report.DryRun,
		"done", report.Done,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"bytes", report.Bytes,
		"interrupted", report.Interrupted)
	return report, nil
}

// settle demotes entries an interrupted batch left pending. They must end
// as failed rather than stay ambiguous; completed and untouched entries are
// left alone.
func settle(selection []*catalog.Entry, results []EntryResult) {
	for i, entry := range selection {
		if entry.Status() == catalog.StatusActionPending {
			_ = entry.Transition(catalog.StatusActionFailed)
			results[i].Outcome = OutcomeFailed
			results[i].Err = "interrupted"
		}
	}
}

func (e *Engine) applyOne(ctx context.Context, entry *catalog.Entry, act Action, dryRun bool) EntryResult {
	logger := contextutil.LoggerFromContext(ctx)
	res := EntryResult{
		ReferenceID: entry.ReferenceID,
		GroupID:     entry.GroupID,
		Path:        entry.AbsolutePath,
	}

	switch entry.Status() {
	case catalog.StatusMissing:
		res.Outcome = OutcomeSkipped
		return res
	case catalog.StatusActionDone:
		res.Outcome = OutcomeAlreadyDone
		return res
	}

	if dryRun {
		if err := e.validate(entry, act); err != nil {
			res.Outcome = OutcomeFailed
			res.Err = err.Error()
			return res
		}
		res.Outcome = OutcomeWouldSucceed
		res.Bytes = entry.ResidentBytes
		return res
	}

	if err := entry.Transition(catalog.StatusActionPending); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
		return res
	}

	var (
		bytes int64
		err   error
	)
	switch act.Kind {
	case KindDelete:
		bytes, err = deleteEntry(entry)
	case KindMove:
		bytes, err = moveEntry(entry, act)
	}
	if err != nil {
		_ = entry.Transition(catalog.StatusActionFailed)
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
		logger.DebugContext(ctx, "entry failed", "reference_id", entry.ReferenceID, "error", err)
		return res
	}

	_ = entry.Transition(catalog.StatusActionDone)
	res.Outcome = OutcomeDone
	res.Bytes = bytes
	logger.DebugContext(ctx, "entry done", "reference_id", entry.ReferenceID, "bytes", bytes)
	return res
}

// validate is the dry-run check: the source must be a regular file and, for
// moves, the destination root must hang off an existing writable directory.
// No filesystem mutation happens here; the permission check reads mode bits,
// so ownership and ACL effects only surface on the real run.
func (e *Engine) validate(entry *catalog.Entry, act Action) error {
	info, err := os.Stat(entry.AbsolutePath)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source %s is a directory", entry.AbsolutePath)
	}
	if act.Kind == KindMove {
		anchor := act.DestRoot
		for {
			fi, err := os.Stat(anchor)
			if err == nil {
				if !fi.IsDir() {
					return fmt.Errorf("destination %s is not a directory", anchor)
				}
				if fi.Mode().Perm()&0o200 == 0 {
					return fmt.Errorf("destination %s is not writable", anchor)
				}
				return nil
			}
			parent := filepath.Dir(anchor)
			if parent == anchor {
				return fmt.Errorf("destination root %s unreachable", act.DestRoot)
			}
			anchor = parent
		}
	}
	return nil
}

// deleteEntry removes the entry's file and its thumbnail companions.
// Thumbnail failures do not fail the entry.
func deleteEntry(entry *catalog.Entry) (int64, error) {
	info, err := os.Stat(entry.AbsolutePath)
	if err != nil {
		return 0, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", entry.AbsolutePath)
	}
	if err := os.Remove(entry.AbsolutePath); err != nil {
		return 0, fmt.Errorf("remove: %w", err)
	}

	freed := info.Size()
	for _, thumb := range entry.ThumbPaths {
		ti, err := os.Stat(thumb)
		if err != nil {
			continue
		}
		if os.Remove(thumb) == nil {
			freed += ti.Size()
		}
	}
	return freed, nil
}

// moveEntry copies the entry's files into the archive and removes the
// sources only after each copy's size is verified. An interrupted copy
// leaves the source intact.
func moveEntry(entry *catalog.Entry, act Action) (int64, error) {
	oriDir, thumbDir := destDirs(entry, act)

	dst := filepath.Join(oriDir, filepath.Base(entry.AbsolutePath))
	moved, err := copyVerifyRemove(entry.AbsolutePath, dst)
	if err != nil {
		return 0, err
	}
	entry.AbsolutePath = dst

	for i, thumb := range entry.ThumbPaths {
		thumbDst := filepath.Join(thumbDir, filepath.Base(thumb))
		n, err := copyVerifyRemove(thumb, thumbDst)
		if err != nil {
			// The original is already archived; companions are best effort.
			continue
		}
		entry.ThumbPaths[i] = thumbDst
		moved += n
	}
	return moved, nil
}

func destDirs(entry *catalog.Entry, act Action) (oriDir, thumbDir string) {
	if act.Flatten {
		return act.DestRoot, act.DestRoot
	}
	group := groupDirName(entry.DisplayName, entry.GroupID)
	base := filepath.Join(act.DestRoot, group, layout.MonthBucket(entry.SentAt))
	return filepath.Join(base, "Ori"), filepath.Join(base, "Thumb")
}

// groupDirName builds "<name>_<id>" with path separators stripped from the
// display name.
func groupDirName(name, id string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == id {
		return id
	}
	return name + "_" + id
}

func copyVerifyRemove(src, dst string) (int64, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source: %w", err)
	}
	if srcInfo.IsDir() {
		return 0, fmt.Errorf("source %s is a directory", src)
	}

	if _, err := os.Stat(dst); err == nil {
		return 0, fmt.Errorf("destination %s already exists", dst)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create destination dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return 0, fmt.Errorf("copy: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("flush destination: %w", err)
	}

	dstInfo, err := os.Stat(dst)
	if err != nil {
		return 0, fmt.Errorf("stat destination: %w", err)
	}
	if dstInfo.Size() != srcInfo.Size() {
		_ = os.Remove(dst)
		return 0, fmt.Errorf("size mismatch after copy: source %d, destination %d", srcInfo.Size(), dstInfo.Size())
	}

	// Source is removed only once the destination is verified.
	if err := os.Remove(src); err != nil {
		return 0, fmt.Errorf("remove source: %w", err)
	}
	return srcInfo.Size(), nil
}

// hasPathCollision reports whether two entries share a resolved path, which
// would make parallel application unsafe.
func hasPathCollision(selection []*catalog.Entry) bool {
	seen := make(map[string]struct{}, len(selection))
	for _, e := range selection {
		if e.AbsolutePath == "" {
			continue
		}
		if _, dup := seen[e.AbsolutePath]; dup {
			return true
		}
		seen[e.AbsolutePath] = struct{}{}
	}
	return false
}

// hasDestCollision reports whether two entries of a move archive into the
// same destination path. Same file name, group, and month is enough, so the
// check covers thumbnail companions too.
func hasDestCollision(selection []*catalog.Entry, act Action) bool {
	if act.Kind != KindMove {
		return false
	}
	seen := make(map[string]struct{}, len(selection))
	for _, e := range selection {
		if e.AbsolutePath == "" {
			continue
		}
		oriDir, thumbDir := destDirs(e, act)
		dsts := []string{filepath.Join(oriDir, filepath.Base(e.AbsolutePath))}
		for _, thumb := range e.ThumbPaths {
			dsts = append(dsts, filepath.Join(thumbDir, filepath.Base(thumb)))
		}
		for _, dst := range dsts {
			if _, dup := seen[dst]; dup {
				return true
			}
			seen[dst] = struct{}{}
		}
	}
	return false
}
