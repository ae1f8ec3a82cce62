package tables

import "fmt"

// ExtractionError identifies a fallback-extraction failure for one table.
// It is contained at table granularity and never aborts the document.
type ExtractionError struct {
	PageIndex int
	TableID   string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("fallback extraction failed for table %s on page %d: %v", e.TableID, e.PageIndex, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// MergeError reports an invariant violation while applying one merge
// candidate. The candidate is skipped and both tables kept.
type MergeError struct {
	DestID   string
	SourceID string
	Reason   string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("cannot merge table %s into %s: %s", e.SourceID, e.DestID, e.Reason)
}
