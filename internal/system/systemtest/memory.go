// Package systemtest provides test doubles for the system package.
package systemtest

import (
	"context"
	"sync"

	"github.com/flemzord/crondeck/internal/system"
)

// MemoryCrontab is an in-memory system.Crontab that records every write.
type MemoryCrontab struct {
	// ReadErr and WriteErr, when set, are returned by the next calls.
	ReadErr  error
	WriteErr error

	mu     sync.Mutex
	text   string
	writes []string
}

// Compile-time interface check.
var _ system.Crontab = (*MemoryCrontab)(nil)

// NewMemoryCrontab returns a MemoryCrontab holding text.
func NewMemoryCrontab(text string) *MemoryCrontab {
	return &MemoryCrontab{text: text}
}

// Read implements system.Crontab.
func (m *MemoryCrontab) Read(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return "", m.ReadErr
	}
	return m.text, nil
}

// Write implements system.Crontab.
func (m *MemoryCrontab) Write(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.text = text
	m.writes = append(m.writes, text)
	return nil
}

// Text returns the current content.
func (m *MemoryCrontab) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// Set replaces the content without recording a write, as an external edit
// would.
func (m *MemoryCrontab) Set(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

// Writes returns every text written so far.
func (m *MemoryCrontab) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.writes))
	copy(out, m.writes)
	return out
}
