package store

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_record_source.go -package=mocks chatsweep/internal/store RecordSource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrSchemaMismatch is returned when a database parses but the expected
	// tables or columns are absent. This is fatal: a shape change would make
	// the catalog silently mis-join.
	ErrSchemaMismatch = errors.New("unexpected database schema")
	// ErrTruncated is returned when a database file does not parse at all.
	ErrTruncated = errors.New("database does not parse")
)

// The source databases name their columns by numeric field ids.
const (
	filesQuery = "SELECT `40001`, `45001`, `82300`, `45403`, `45404`, `40021`, `40010`, " +
		"`45002`, `45003`, `45402`, `45405`, `40050` FROM files_in_chat_table ORDER BY `40001`"
	groupsQuery = "SELECT `60001`, `60007`, `60026`, `60002`, `60004`, `60005`, `60006`, `60340` " +
		"FROM group_detail_info_ver1 ORDER BY `60001`"
)

// RecordSource exposes a parsed record snapshot to the catalog builder.
type RecordSource interface {
	// Files returns every file reference ordered by reference id.
	Files() []FileReference
	// GroupByID looks up a group by id.
	GroupByID(id string) (GroupInfo, bool)
	// Groups returns every group ordered by group id.
	Groups() []GroupInfo
}

// RecordStore holds the parsed contents of the files and group databases.
// Parsing is a pure function of the database bytes: identical inputs always
// yield an identical snapshot. It implements RecordSource.
type RecordStore struct {
	files  []FileReference
	byID   map[int64]FileReference
	groups map[string]GroupInfo
}

// Open parses the two plaintext databases into a RecordStore.
// Group rows with no file references are kept, as are references whose group
// is absent from the group database; joining is the catalog's concern.
func Open(ctx context.Context, filesDBPath, groupDBPath string) (*RecordStore, error) {
	s := &RecordStore{
		byID:   make(map[int64]FileReference),
		groups: make(map[string]GroupInfo),
	}

	if err := s.loadFiles(ctx, filesDBPath); err != nil {
		return nil, err
	}
	if err := s.loadGroups(ctx, groupDBPath); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RecordStore) loadFiles(ctx context.Context, path string) error {
	db, err := openRead(path)
	if err != nil {
		return fmt.Errorf("files database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx, filesQuery)
	if err != nil {
		return classifyQueryErr("files database", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ref                          FileReference
			relPath, thumbPath, groupID  sql.NullString
			fileName                     sql.NullString
			clientSeq, msgRandom, size   sql.NullInt64
			elemType, subElemType, msgTS sql.NullInt64
		)
		if err := rows.Scan(&ref.ReferenceID, &clientSeq, &msgRandom, &relPath, &thumbPath,
			&groupID, &ref.ChatKind, &elemType, &subElemType, &fileName, &size, &msgTS); err != nil {
			return fmt.Errorf("files database: scan: %w", err)
		}
		ref.ClientSeq = clientSeq.Int64
		ref.MsgRandom = msgRandom.Int64
		ref.RelPath = relPath.String
		ref.ThumbRelPath = thumbPath.String
		ref.GroupID = groupID.String
		ref.ElementType = elemType.Int64
		ref.SubElementType = subElemType.Int64
		ref.FileName = fileName.String
		ref.SizeBytes = size.Int64
		ref.SentAt = time.Unix(msgTS.Int64, 0).UTC()

		// First row wins on a duplicate reference id; rows arrive ordered so
		// the choice is deterministic.
		if _, ok := s.byID[ref.ReferenceID]; ok {
			continue
		}
		s.byID[ref.ReferenceID] = ref
		s.files = append(s.files, ref)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("files database: %w: %v", ErrTruncated, err)
	}
	return nil
}

func (s *RecordStore) loadGroups(ctx context.Context, path string) error {
	db, err := openRead(path)
	if err != nil {
		return fmt.Errorf("group database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx, groupsQuery)
	if err != nil {
		return classifyQueryErr("group database", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g                     GroupInfo
			groupID               int64
			name, remark, owner   sql.NullString
			created, maxM, countM sql.NullInt64
			quit                  sql.NullInt64
		)
		if err := rows.Scan(&groupID, &name, &remark, &owner, &created, &maxM, &countM, &quit); err != nil {
			return fmt.Errorf("group database: scan: %w", err)
		}
		g.GroupID = fmt.Sprintf("%d", groupID)
		g.DisplayName = name.String
		g.Remark = remark.String
		g.OwnerUID = owner.String
		g.CreatedAt = time.Unix(created.Int64, 0).UTC()
		g.MaxMembers = maxM.Int64
		g.MemberCount = countM.Int64
		g.Departed = quit.Int64 != 0
		g.Kind = KindGroup
		s.groups[g.GroupID] = g
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("group database: %w: %v", ErrTruncated, err)
	}
	return nil
}

// Files returns every file reference ordered by reference id.
func (s *RecordStore) Files() []FileReference {
	out := make([]FileReference, len(s.files))
	copy(out, s.files)
	return out
}

// FileByID looks up a single reference.
func (s *RecordStore) FileByID(id int64) (FileReference, bool) {
	ref, ok := s.byID[id]
	return ref, ok
}

// GroupByID looks up a group by id.
func (s *RecordStore) GroupByID(id string) (GroupInfo, bool) {
	g, ok := s.groups[id]
	return g, ok
}

// Groups returns every group ordered by group id.
func (s *RecordStore) Groups() []GroupInfo {
	out := make([]GroupInfo, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out
}

// openRead opens a SQLite database read-only; the source databases are
// evidence and are never written.
func openRead(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_query_only=1")
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return db, nil
}

// classifyQueryErr separates schema-shape failures from unreadable files.
func classifyQueryErr(which string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "no such table") || strings.Contains(msg, "no such column") {
		return fmt.Errorf("%s: %w: %v", which, ErrSchemaMismatch, err)
	}
	if strings.Contains(msg, "not a database") || strings.Contains(msg, "file is encrypted") {
		return fmt.Errorf("%s: %w: %v", which, ErrTruncated, err)
	}
	return fmt.Errorf("%s: query: %w", which, err)
}
