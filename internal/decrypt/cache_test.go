package decrypt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chatsweep/internal/decrypt/mocks"

	"go.uber.org/mock/gomock"
)

func TestEnsureDecrypted_DecryptsWhenArtifactMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	encPath := filepath.Join(dir, "files_in_chat.db")
	outPath := filepath.Join(dir, "files_in_chat.clean.db")
	if err := os.WriteFile(encPath, []byte("encrypted"), 0o600); err != nil {
		t.Fatal(err)
	}

	mockDec := mocks.NewMockDecryptor(ctrl)
	mockDec.EXPECT().
		Decrypt([]byte("encrypted"), "key").
		Return([]byte("plaintext"), nil)

	ran, err := EnsureDecrypted(context.Background(), mockDec, encPath, outPath, "key", false)
	if err != nil {
		t.Fatalf("EnsureDecrypted() error = %v", err)
	}
	if !ran {
		t.Error("EnsureDecrypted() ran = false, want true")
	}

	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	if string(got) != "plaintext" {
		t.Errorf("artifact = %q, want %q", got, "plaintext")
	}
}

func TestEnsureDecrypted_ReusesArtifact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	encPath := filepath.Join(dir, "group_info.db")
	outPath := filepath.Join(dir, "group_info.clean.db")
	if err := os.WriteFile(outPath, []byte("cached"), 0o600); err != nil {
		t.Fatal(err)
	}

	// No Decrypt expectation: touching the decryptor would fail the test.
	mockDec := mocks.NewMockDecryptor(ctrl)

	ran, err := EnsureDecrypted(context.Background(), mockDec, encPath, outPath, "key", false)
	if err != nil {
		t.Fatalf("EnsureDecrypted() error = %v", err)
	}
	if ran {
		t.Error("EnsureDecrypted() ran = true, want false when artifact exists")
	}
}

func TestEnsureDecrypted_ForceReplacesArtifact(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	encPath := filepath.Join(dir, "files_in_chat.db")
	outPath := filepath.Join(dir, "files_in_chat.clean.db")
	if err := os.WriteFile(encPath, []byte("encrypted"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outPath, []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}

	mockDec := mocks.NewMockDecryptor(ctrl)
	mockDec.EXPECT().
		Decrypt(gomock.Any(), "key").
		Return([]byte("fresh"), nil)

	ran, err := EnsureDecrypted(context.Background(), mockDec, encPath, outPath, "key", true)
	if err != nil {
		t.Fatalf("EnsureDecrypted() error = %v", err)
	}
	if !ran {
		t.Error("EnsureDecrypted() ran = false, want true with force")
	}

	got, _ := os.ReadFile(outPath)
	if string(got) != "fresh" {
		t.Errorf("artifact = %q, want %q", got, "fresh")
	}
}

func TestEnsureDecrypted_PropagatesBadKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	encPath := filepath.Join(dir, "files_in_chat.db")
	if err := os.WriteFile(encPath, []byte("encrypted"), 0o600); err != nil {
		t.Fatal(err)
	}

	mockDec := mocks.NewMockDecryptor(ctrl)
	mockDec.EXPECT().
		Decrypt(gomock.Any(), "bad").
		Return(nil, ErrBadKey)

	_, err := EnsureDecrypted(context.Background(), mockDec, encPath, filepath.Join(dir, "out.clean.db"), "bad", false)
	if !errors.Is(err, ErrBadKey) {
		t.Errorf("EnsureDecrypted() error = %v, want ErrBadKey", err)
	}
}

func TestEnsureDecrypted_MissingSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	dir := t.TempDir()
	mockDec := mocks.NewMockDecryptor(ctrl)

	_, err := EnsureDecrypted(context.Background(), mockDec, filepath.Join(dir, "nope.db"), filepath.Join(dir, "out.clean.db"), "k", false)
	if err == nil {
		t.Error("EnsureDecrypted() expected error for missing source")
	}
}
