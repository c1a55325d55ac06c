package bridge

import (
	"sync"

	"github.com/saturnino-fabrica-de-software/facebridge/internal/engine"
)

// LastError is the diagnostic side channel. The global message is
// last-writer-wins across every caller and handle; callers that need the
// error of a specific call must use the returned error value or the message
// scoped to their handle.
type LastError struct {
	mu        sync.RWMutex
	global    string
	perHandle map[engine.Handle]string
}

func NewLastError() *LastError {
	return &LastError{perHandle: make(map[engine.Handle]string)}
}

// Set records msg globally.
func (l *LastError) Set(msg string) {
	l.mu.Lock()
	l.global = msg
	l.mu.Unlock()
}

// SetFor records msg globally and under h.
func (l *LastError) SetFor(h engine.Handle, msg string) {
	l.mu.Lock()
	l.global = msg
	l.perHandle[h] = msg
	l.mu.Unlock()
}

// Get returns the most recent message, or "" if none was ever recorded.
func (l *LastError) Get() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.global
}

// For returns the most recent message recorded under h.
func (l *LastError) For(h engine.Handle) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.perHandle[h]
}

// Clear drops the message scoped to h. The global message is untouched.
func (l *LastError) Clear(h engine.Handle) {
	l.mu.Lock()
	delete(l.perHandle, h)
	l.mu.Unlock()
}
