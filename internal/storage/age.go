package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

var (
	encPrefix = []byte("ENC[age:")
	encSuffix = []byte("]")
)

// AgeSlot encrypts values with an X25519 identity before handing them to the
// wrapped slot. Plaintext values already in the slot are returned as-is, so
// enabling encryption migrates existing data on its next write.
type AgeSlot struct {
	inner    Slot
	identity *age.X25519Identity
}

// NewAgeSlot wraps inner with encryption for identity.
func NewAgeSlot(inner Slot, identity *age.X25519Identity) *AgeSlot {
	return &AgeSlot{inner: inner, identity: identity}
}

func (a *AgeSlot) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := a.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !IsEncrypted(data) {
		return data, nil
	}
	return Decrypt(data, a.identity)
}

func (a *AgeSlot) Set(ctx context.Context, key string, value []byte) error {
	blob, err := Encrypt(value, a.identity.Recipient())
	if err != nil {
		return err
	}
	return a.inner.Set(ctx, key, blob)
}

// Unwrap returns the slot holding the encrypted values.
func (a *AgeSlot) Unwrap() Slot { return a.inner }

func (a *AgeSlot) Close() error {
	return a.inner.Close()
}

// GenerateIdentity creates an X25519 key pair and writes it to path with 0o600.
// It is idempotent: if the file already exists, it does nothing.
func GenerateIdentity(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generate age identity: %w", err)
	}

	content := fmt.Sprintf("# created by hellotodo\n# public key: %s\n%s\n",
		identity.Recipient().String(), identity.String())

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write age key: %w", err)
	}
	return nil
}

// LoadIdentity reads the first X25519 identity from path.
func LoadIdentity(path string) (*age.X25519Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse age identities: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in %s", path)
	}

	id, ok := identities[0].(*age.X25519Identity)
	if !ok {
		return nil, fmt.Errorf("unexpected identity type in %s", path)
	}
	return id, nil
}

// Encrypt returns plaintext as an ENC[age:<base64>] blob.
func Encrypt(plaintext []byte, recipient *age.X25519Recipient) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("age encrypt init: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("age encrypt write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt close: %w", err)
	}

	out := make([]byte, 0, len(encPrefix)+base64.StdEncoding.EncodedLen(buf.Len())+len(encSuffix))
	out = append(out, encPrefix...)
	out = base64.StdEncoding.AppendEncode(out, buf.Bytes())
	out = append(out, encSuffix...)
	return out, nil
}

// Decrypt reverses Encrypt.
func Decrypt(blob []byte, identity *age.X25519Identity) ([]byte, error) {
	blob = bytes.TrimSpace(blob)
	if !IsEncrypted(blob) {
		return nil, fmt.Errorf("not an encrypted blob")
	}

	encoded := blob[len(encPrefix) : len(blob)-len(encSuffix)]
	ciphertext, err := base64.StdEncoding.AppendDecode(nil, encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("age decrypt: %w", err)
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read decrypted: %w", err)
	}
	return plain, nil
}

// IsEncrypted reports whether data is an ENC[age:...] blob.
func IsEncrypted(data []byte) bool {
	data = bytes.TrimSpace(data)
	return bytes.HasPrefix(data, encPrefix) && bytes.HasSuffix(data, encSuffix)
}
