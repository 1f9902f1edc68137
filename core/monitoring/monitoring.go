// Package monitoring defines the error reporting contract used by long
// running loops. Reports are best effort and never change control flow.
package monitoring

import "time"

// Monitor reports errors and panics to an external tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// Recover must be deferred directly. It reports a panic and re-panics.
	Recover()
	Flush(timeout time.Duration)
}

// Nop discards every report.
type Nop struct{}

func (Nop) CaptureException(error, map[string]string) {}
func (Nop) Recover()                                  {}
func (Nop) Flush(time.Duration)                       {}

// OrNop returns m, or Nop when m is nil.
func OrNop(m Monitor) Monitor {
	if m == nil {
		return Nop{}
	}
	return m
}

// Recorder keeps captured errors in memory. Tests use it to assert on
// reports.
type Recorder struct {
	Errors []error
	Tags   []map[string]string
}

func (r *Recorder) CaptureException(err error, tags map[string]string) {
	r.Errors = append(r.Errors, err)
	r.Tags = append(r.Tags, tags)
}

func (r *Recorder) Recover()            {}
func (r *Recorder) Flush(time.Duration) {}
