// Package storage provides the key-value slots the task snapshot is persisted
// to, and the writer that keeps them up to date.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Slot.Get when the key holds no value.
var ErrNotFound = errors.New("slot not found")

// Slot is a minimal durable key-value store. Implementations must be safe
// for use from the snapshot writer goroutine alongside the owning goroutine.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Raw returns the slot that holds the stored bytes of s, unwrapping layers
// such as AgeSlot that transform values on the way in and out.
func Raw(s Slot) Slot {
	for {
		u, ok := s.(interface{ Unwrap() Slot })
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey rejects keys that cannot be used as file names.
func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid slot key %q", key)
	}
	return nil
}
