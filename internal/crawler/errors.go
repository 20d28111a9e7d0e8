package crawler

import (
	"errors"
	"fmt"
)

// ErrContentKind is returned when a listing answers with a document type
// other than the one its source declares, such as an HTML error page in
// place of a feed.
var ErrContentKind = errors.New("listing content does not match declared kind")

// Stage names the pipeline step a run stopped at.
type Stage string

const (
	StageWatermark Stage = "watermark"
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageResolve   Stage = "resolve"
	StageFilter    Stage = "filter"
	StagePersist   Stage = "persist"
	StagePublish   Stage = "publish"
)

// FetchError is returned when a listing or detail page is unreachable or
// answers with a non-success status. Status is zero for transport failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError is returned when the store rejects or cannot receive a batch.
type PersistError struct {
	SourceID string
	Err      error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.SourceID, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
