package decrypt

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_decryptor.go -package=mocks chatsweep/internal/decrypt Decryptor

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrBadKey is returned when the key fails to authenticate the first page.
	ErrBadKey = errors.New("decryption key rejected")
	// ErrCorrupt is returned when page authentication or structure checks fail
	// beyond the first page.
	ErrCorrupt = errors.New("database content corrupt")
	// ErrTruncated is returned when the encrypted stream is not a whole number
	// of pages.
	ErrTruncated = errors.New("encrypted database truncated")
)

// sqliteMagic is the plaintext header every decrypted database must start with.
var sqliteMagic = []byte("SQLite format 3\x00")

const (
	saltSize = 16
	ivSize   = 16
	hmacSize = sha256.Size
	// reserve is the per-page tail holding the IV and page HMAC.
	reserve = ivSize + hmacSize

	defaultPageSize      = 4096
	defaultKDFIterations = 64000
	hmacKDFIterations    = 2
	keySize              = 32
)

// Decryptor turns an encrypted database byte stream and a key into plaintext
// bytes. Implementations are trusted; the rest of the pipeline never looks
// inside the cipher.
type Decryptor interface {
	Decrypt(encrypted []byte, key string) ([]byte, error)
}

// PageCipher decrypts page-encrypted database files. Each page carries its
// ciphertext followed by a 16-byte IV and a page HMAC; the first page is
// prefixed with the key-derivation salt in place of the plaintext header.
type PageCipher struct {
	PageSize      int
	KDFIterations int
}

// NewPageCipher returns a PageCipher with the stock page size and KDF cost.
func NewPageCipher() *PageCipher {
	return &PageCipher{
		PageSize:      defaultPageSize,
		KDFIterations: defaultKDFIterations,
	}
}

// Decrypt authenticates and decrypts every page of the stream. A failed
// check on the first page is reported as ErrBadKey since a wrong key and a
// damaged first page are indistinguishable; later pages report ErrCorrupt.
func (c *PageCipher) Decrypt(encrypted []byte, key string) ([]byte, error) {
	if len(encrypted) < c.PageSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least one %d-byte page", ErrTruncated, len(encrypted), c.PageSize)
	}
	if len(encrypted)%c.PageSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte pages", ErrTruncated, len(encrypted), c.PageSize)
	}

	salt := encrypted[:saltSize]
	encKey, hmacKey := c.deriveKeys(key, salt)

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	nPages := len(encrypted) / c.PageSize
	var plain bytes.Buffer
	for pageNo := 1; pageNo <= nPages; pageNo++ {
		page := encrypted[(pageNo-1)*c.PageSize : pageNo*c.PageSize]

		body := page
		if pageNo == 1 {
			body = page[saltSize:]
		}
		ct := body[:len(body)-reserve]
		iv := body[len(body)-reserve : len(body)-hmacSize]
		tag := body[len(body)-hmacSize:]

		if !verifyPage(hmacKey, ct, iv, pageNo, tag) {
			if pageNo == 1 {
				return nil, ErrBadKey
			}
			return nil, fmt.Errorf("%w: page %d failed authentication", ErrCorrupt, pageNo)
		}

		pt := make([]byte, len(ct))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
		plain.Write(pt)
	}

	out := plain.Bytes()
	if !bytes.HasPrefix(out, sqliteMagic) {
		return nil, fmt.Errorf("%w: decrypted stream is not a database", ErrCorrupt)
	}
	return out, nil
}

// deriveKeys derives the encryption key from the passphrase and the page
// HMAC key from the encryption key, salted with the XOR-masked file salt.
func (c *PageCipher) deriveKeys(key string, salt []byte) (encKey, hmacKey []byte) {
	encKey = pbkdf2.Key([]byte(key), salt, c.KDFIterations, keySize, sha512.New)

	hmacSalt := make([]byte, saltSize)
	for i, b := range salt {
		hmacSalt[i] = b ^ 0x3a
	}
	hmacKey = pbkdf2.Key(encKey, hmacSalt, hmacKDFIterations, keySize, sha512.New)
	return encKey, hmacKey
}

func verifyPage(hmacKey, ct, iv []byte, pageNo int, tag []byte) bool {
	mac := hmac.New(sha256.New, hmacKey)
	mac.Write(ct)
	mac.Write(iv)
	var pageNoLE [4]byte
	binary.LittleEndian.PutUint32(pageNoLE[:], uint32(pageNo))
	mac.Write(pageNoLE[:])
	return hmac.Equal(mac.Sum(nil), tag)
}
