package storage

import (
	"errors"
	"fmt"
)

var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageRead        = errors.New("storage read failed")
	ErrStorageWrite       = errors.New("storage write failed")
	ErrNotFound           = errors.New("task not found")
	ErrDuplicateKey       = errors.New("duplicate task id")
)

func wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}
