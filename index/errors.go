package index

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound means the requested location does not exist.
	ErrNodeNotFound = errors.New("forum not found")
	// ErrRepositoryUnavailable wraps backing store failures. It is not retried here.
	ErrRepositoryUnavailable = errors.New("forum repository unavailable")
	// ErrEmptyIndex is returned with a valid page when nothing is visible.
	// The caller shows a "no forums" message instead of the list.
	ErrEmptyIndex = errors.New("no forums to show")
)

func unavailable(op string, err error) error {
	if errors.Is(err, ErrRepositoryUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRepositoryUnavailable, err)
}
