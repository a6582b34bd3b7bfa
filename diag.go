package sdfscene

import (
	"log"
	"sync"
)

// Diagnostics logs recoverable anomalies at most once per distinct cause.
// The zero value logs to [log.Default]. Safe for concurrent use.
type Diagnostics struct {
	Logger *log.Logger
	mu     sync.Mutex
	seen   map[string]struct{}
}

// OnceTo logs the formatted message to l if cause has not been logged before and
// reports whether it did. A nil l means d.Logger.
func (d *Diagnostics) OnceTo(l *log.Logger, cause, format string, args ...any) bool {
	d.mu.Lock()
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	_, dup := d.seen[cause]
	if !dup {
		d.seen[cause] = struct{}{}
	}
	d.mu.Unlock()
	if dup {
		return false
	}
	if l == nil {
		l = d.Logger
	}
	if l == nil {
		l = log.Default()
	}
	l.Printf(format, args...)
	return true
}
