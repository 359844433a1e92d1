package query

import "time"

// Status is the lifecycle stage of a read.
type Status int

const (
	// StatusIdle means the read is disabled and nothing was fetched.
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Result is a snapshot of a cached read. On error Data keeps the last
// successful value, if any.
type Result struct {
	Data          any
	Err           error
	Status        Status
	IsFetching    bool
	IsPlaceholder bool
	UpdatedAt     time.Time
}

// IsLoading is true while there is nothing at all to show yet.
func (r Result) IsLoading() bool {
	return r.Status == StatusPending
}

// IsError reports whether the latest fetch failed.
func (r Result) IsError() bool {
	return r.Status == StatusError
}
