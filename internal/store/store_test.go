package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const filesSchema = `CREATE TABLE files_in_chat_table (
	` + "`40001`" + ` INTEGER, ` + "`45001`" + ` INTEGER, ` + "`82300`" + ` INTEGER,
	` + "`45403`" + ` TEXT, ` + "`45404`" + ` TEXT, ` + "`40020`" + ` TEXT, ` + "`40021`" + ` TEXT,
	` + "`40010`" + ` INTEGER, ` + "`45002`" + ` INTEGER, ` + "`45003`" + ` INTEGER,
	` + "`45402`" + ` TEXT, ` + "`45405`" + ` INTEGER, ` + "`40050`" + ` INTEGER, ` + "`82302`" + ` INTEGER
)`

const groupsSchema = `CREATE TABLE group_detail_info_ver1 (
	` + "`60001`" + ` INTEGER, ` + "`60007`" + ` TEXT, ` + "`60026`" + ` TEXT, ` + "`60002`" + ` TEXT,
	` + "`60004`" + ` INTEGER, ` + "`60005`" + ` INTEGER, ` + "`60006`" + ` INTEGER, ` + "`60340`" + ` INTEGER
)`

func createDB(t *testing.T, path, schema string, inserts []string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	for _, stmt := range inserts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("fixture insert: %v", err)
		}
	}
}

func fixtureDBs(t *testing.T, fileInserts, groupInserts []string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	filesPath := filepath.Join(dir, "files_in_chat.clean.db")
	groupPath := filepath.Join(dir, "group_info.clean.db")
	createDB(t, filesPath, filesSchema, fileInserts)
	createDB(t, groupPath, groupsSchema, groupInserts)
	return filesPath, groupPath
}

func TestOpen_ParsesRecords(t *testing.T) {
	filesPath, groupPath := fixtureDBs(t,
		[]string{
			"INSERT INTO files_in_chat_table VALUES (1002, 11, 21, '2024-03/Ori/b.jpg', '2024-03/Thumb/b_720.jpg', 'u1', '900001', 2, 2, 0, 'b.jpg', 2048, 1709300000, 0)",
			"INSERT INTO files_in_chat_table VALUES (1001, 10, 20, '2024-01/Ori/a.png', '', 'u1', '900001', 2, 2, 0, 'a.png', 1024, 1704100000, 0)",
		},
		[]string{
			"INSERT INTO group_detail_info_ver1 VALUES (900001, 'Project Chat', 'proj', 'owner1', 1600000000, 500, 42, 0)",
		})

	s, err := Open(context.Background(), filesPath, groupPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	files := s.Files()
	if len(files) != 2 {
		t.Fatalf("Files() len = %d, want 2", len(files))
	}
	if files[0].ReferenceID != 1001 || files[1].ReferenceID != 1002 {
		t.Errorf("Files() not ordered by reference id: %d, %d", files[0].ReferenceID, files[1].ReferenceID)
	}

	got := files[0]
	if got.GroupID != "900001" || got.FileName != "a.png" || got.SizeBytes != 1024 {
		t.Errorf("unexpected reference fields: %+v", got)
	}
	if !got.IsGroupChat() {
		t.Error("IsGroupChat() = false for chat kind 2")
	}
	if want := time.Unix(1704100000, 0).UTC(); !got.SentAt.Equal(want) || got.SentAt.Location() != time.UTC {
		t.Errorf("SentAt = %v, want %v (UTC)", got.SentAt, want)
	}

	g, ok := s.GroupByID("900001")
	if !ok {
		t.Fatal("GroupByID(900001) not found")
	}
	if g.DisplayName != "Project Chat" || g.MemberCount != 42 || g.Departed || g.Kind != KindGroup {
		t.Errorf("unexpected group fields: %+v", g)
	}
}

func TestOpen_ToleratesUnjoinedRows(t *testing.T) {
	// A group with no files and a file whose group is absent are both kept.
	filesPath, groupPath := fixtureDBs(t,
		[]string{
			"INSERT INTO files_in_chat_table VALUES (5, 1, 1, 'p', '', 'u', '777', 2, 2, 0, 'x.jpg', 10, 1704100000, 0)",
		},
		[]string{
			"INSERT INTO group_detail_info_ver1 VALUES (888, 'Empty Group', NULL, 'o', 0, 0, 0, 1)",
		})

	s, err := Open(context.Background(), filesPath, groupPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if len(s.Files()) != 1 {
		t.Errorf("Files() len = %d, want 1", len(s.Files()))
	}
	if _, ok := s.GroupByID("777"); ok {
		t.Error("GroupByID(777) should be absent")
	}
	g, ok := s.GroupByID("888")
	if !ok {
		t.Fatal("fileless group dropped")
	}
	if !g.Departed {
		t.Error("quit flag not parsed")
	}
}

func TestOpen_DuplicateReferenceID(t *testing.T) {
	filesPath, groupPath := fixtureDBs(t,
		[]string{
			"INSERT INTO files_in_chat_table VALUES (9, 1, 1, 'first', '', 'u', 'g', 2, 2, 0, 'first.jpg', 1, 1704100000, 0)",
			"INSERT INTO files_in_chat_table VALUES (9, 2, 2, 'second', '', 'u', 'g', 2, 2, 0, 'second.jpg', 2, 1704200000, 0)",
		}, nil)

	s, err := Open(context.Background(), filesPath, groupPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	files := s.Files()
	if len(files) != 1 {
		t.Fatalf("Files() len = %d, want 1", len(files))
	}
	if files[0].FileName != "first.jpg" {
		t.Errorf("duplicate handling kept %q, want first row", files[0].FileName)
	}
}

func TestOpen_NullColumns(t *testing.T) {
	filesPath, groupPath := fixtureDBs(t,
		[]string{
			"INSERT INTO files_in_chat_table VALUES (3, NULL, NULL, NULL, NULL, NULL, NULL, 1, NULL, NULL, NULL, NULL, NULL, NULL)",
		},
		[]string{
			"INSERT INTO group_detail_info_ver1 VALUES (12, NULL, NULL, NULL, NULL, NULL, NULL, NULL)",
		})

	s, err := Open(context.Background(), filesPath, groupPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ref, ok := s.FileByID(3)
	if !ok {
		t.Fatal("FileByID(3) not found")
	}
	if ref.FileName != "" || ref.SizeBytes != 0 || ref.IsGroupChat() {
		t.Errorf("null columns not defaulted: %+v", ref)
	}
	if g, ok := s.GroupByID("12"); !ok || g.DisplayName != "" {
		t.Errorf("null group columns not defaulted: %+v", g)
	}
}

func TestOpen_Deterministic(t *testing.T) {
	inserts := []string{
		"INSERT INTO files_in_chat_table VALUES (2, 1, 1, 'b', '', 'u', 'g2', 2, 2, 0, 'b.jpg', 2, 1704200000, 0)",
		"INSERT INTO files_in_chat_table VALUES (1, 1, 1, 'a', '', 'u', 'g1', 2, 2, 0, 'a.jpg', 1, 1704100000, 0)",
	}
	groupInserts := []string{
		"INSERT INTO group_detail_info_ver1 VALUES (1, 'G1', NULL, 'o', 0, 0, 0, 0)",
		"INSERT INTO group_detail_info_ver1 VALUES (2, 'G2', NULL, 'o', 0, 0, 0, 0)",
	}
	filesPath, groupPath := fixtureDBs(t, inserts, groupInserts)

	first, err := Open(context.Background(), filesPath, groupPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	second, err := Open(context.Background(), filesPath, groupPath)
	if err != nil {
		t.Fatalf("Open() second error = %v", err)
	}

	if !reflect.DeepEqual(first.Files(), second.Files()) {
		t.Error("Files() differ between identical parses")
	}
	if !reflect.DeepEqual(first.Groups(), second.Groups()) {
		t.Error("Groups() differ between identical parses")
	}
}

func TestOpen_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing table", func(t *testing.T) {
		filesPath := filepath.Join(dir, "empty_files.db")
		groupPath := filepath.Join(dir, "empty_groups.db")
		createDB(t, filesPath, "CREATE TABLE unrelated (x INTEGER)", nil)
		createDB(t, groupPath, groupsSchema, nil)

		_, err := Open(context.Background(), filesPath, groupPath)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("Open() error = %v, want ErrSchemaMismatch", err)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		filesPath := filepath.Join(dir, "narrow_files.db")
		groupPath := filepath.Join(dir, "ok_groups.db")
		createDB(t, filesPath, "CREATE TABLE files_in_chat_table (`40001` INTEGER)", nil)
		createDB(t, groupPath, groupsSchema, nil)

		_, err := Open(context.Background(), filesPath, groupPath)
		if !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("Open() error = %v, want ErrSchemaMismatch", err)
		}
	})
}

func TestOpen_NotADatabase(t *testing.T) {
	dir := t.TempDir()
	filesPath := filepath.Join(dir, "garbage.db")
	groupPath := filepath.Join(dir, "groups.db")
	if err := os.WriteFile(filesPath, []byte("this is not sqlite"), 0o600); err != nil {
		t.Fatal(err)
	}
	createDB(t, groupPath, groupsSchema, nil)

	_, err := Open(context.Background(), filesPath, groupPath)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Open() error = %v, want ErrTruncated", err)
	}
}
