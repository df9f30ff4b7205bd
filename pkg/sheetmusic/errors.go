package sheetmusic

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrSheetMusicNotFound indicates no sheet music exists with the requested id
	ErrSheetMusicNotFound = errors.New("sheet music not found")

	// ErrPdfNotFound indicates a pdf is not attached to the requested sheet music
	ErrPdfNotFound = errors.New("pdf not found")

	// ErrOwnershipMismatch indicates the acting member does not own the sheet music
	ErrOwnershipMismatch = errors.New("member does not own sheet music")

	// ErrObjectNotFound indicates a file store has no object under the key
	ErrObjectNotFound = errors.New("object not found")

	// ErrResourceNotFound indicates a resource URL could not be resolved
	ErrResourceNotFound = errors.New("resource not found")

	// ErrInvalidPageRequest indicates out of range pagination parameters
	ErrInvalidPageRequest = errors.New("invalid page request")
)

// SheetMusicError represents an error related to a sheet music operation
type SheetMusicError struct {
	ID  int64
	Op  string
	Err error
}

func (e *SheetMusicError) Error() string {
	return fmt.Sprintf("sheet music operation %s failed for sheet music %d: %v", e.Op, e.ID, e.Err)
}

func (e *SheetMusicError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to file store operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ResourceError represents an error while resolving or copying a resource
type ResourceError struct {
	URL string
	Op  string
	Err error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource operation %s failed for %s: %v", e.Op, e.URL, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}
