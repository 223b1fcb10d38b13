package model

import (
	"sync"
	"time"
)

// Flash holds the latest transient notification. A newer message replaces an
// older one even if the older has not expired.
type Flash struct {
	mu      sync.RWMutex
	message string
	expires time.Time
	now     func() time.Time
}

func (f *Flash) clock() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

// Set stores a flash message that expires after the given duration.
func (f *Flash) Set(msg string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.message = msg
	f.expires = f.clock().Add(d)
}

// Get returns the current flash message, or empty if expired.
func (f *Flash) Get() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.clock().Before(f.expires) {
		return ""
	}
	return f.message
}
