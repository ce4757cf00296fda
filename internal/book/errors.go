package book

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a book or log row does not exist.
var ErrNotFound = errors.New("not found")

// StorageError is returned when the persistent store fails a read or write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err came from the persistent store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
