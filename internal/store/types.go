package store

import "time"

// Entry is the atomic unit of clipboard history, as committed to the
// database. See spec §3.
type Entry struct {
	ID          int64
	CreatedAt   time.Time
	Mime        string
	Payload     []byte
	Preview     string
	SourceApp   string // empty means unknown/not recorded
	TTLSeconds  *int64 // nil means never expire
	IsExpired   bool
	ContentHash []byte // sha256 of Payload
}

// Candidate is an entry proposed for insertion, before an id or
// content hash has been assigned.
type Candidate struct {
	Mime       string
	Payload    []byte
	Preview    string
	SourceApp  string
	TTLSeconds *int64
}

// Options configures the dedup/trim policies enforced on every Insert.
type Options struct {
	// MaxItems caps the number of non-expired rows kept after each
	// insert. Zero or negative disables the cap.
	MaxItems int

	// MaxDedupeSearch bounds how many of the most recent active rows
	// are scanned for a content-hash match. Zero or negative disables
	// dedup entirely.
	MaxDedupeSearch int
}

// InsertResult reports the outcome of Store.Insert.
type InsertResult struct {
	// ID is the assigned row id when the candidate was committed.
	ID int64

	// Duplicate is true when the candidate matched an existing active
	// row within the dedup window; DuplicateID names that row and ID
	// is zero.
	Duplicate   bool
	DuplicateID int64
}

// ListFilter narrows the rows returned by Store.List.
type ListFilter struct {
	// IncludeExpired also returns rows with is_expired = 1.
	IncludeExpired bool

	// PreviewSubstring, if non-empty, restricts results to rows whose
	// preview contains the substring.
	PreviewSubstring string

	// Limit caps the number of rows returned. Zero means unlimited.
	Limit int
}

// Stats summarizes the store for the "db stats" command.
type Stats struct {
	Total   int64
	Active  int64
	Expired int64
	Bytes   int64
	Pages   int64
}
