package decrypt

import (
	"context"
	"fmt"
	"os"

	"chatsweep/internal/contextutil"
)

// EnsureDecrypted makes sure a plaintext artifact exists for the encrypted
// database at encPath. When outPath already exists the artifact is reused and
// no decryption happens, so repeated runs skip the expensive step; force
// discards the artifact first. Returns true when a decryption was performed.
//
// Artifact validity is judged by the caller keeping the key stable between
// runs: decryption is deterministic, so equal inputs always produce an equal
// artifact.
func EnsureDecrypted(ctx context.Context, d Decryptor, encPath, outPath, key string, force bool) (bool, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if !force {
		if _, err := os.Stat(outPath); err == nil {
			logger.DebugContext(ctx, "reusing decrypted artifact", "path", outPath)
			return false, nil
		}
	}

	encrypted, err := os.ReadFile(encPath)
	if err != nil {
		return false, fmt.Errorf("read encrypted database %s: %w", encPath, err)
	}

	plain, err := d.Decrypt(encrypted, key)
	if err != nil {
		return false, fmt.Errorf("decrypt %s: %w", encPath, err)
	}

	if err := os.WriteFile(outPath, plain, 0o600); err != nil {
		return false, fmt.Errorf("write decrypted artifact %s: %w", outPath, err)
	}
	logger.InfoContext(ctx, "database decrypted", "source", encPath, "artifact", outPath, "bytes", len(plain))
	return true, nil
}
