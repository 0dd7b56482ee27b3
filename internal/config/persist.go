package config

import (
	"fmt"
	"sync"
)

// Persister applies changes made at runtime to the settings file so they
// survive a restart. Updates are serialised; each one re-reads the file so
// edits made by hand in between are kept.
type Persister struct {
	mu   sync.Mutex
	path string
}

// NewPersister returns a Persister for the settings file at path.
func NewPersister(path string) *Persister {
	return &Persister{path: path}
}

// Path returns the settings file the Persister writes.
func (p *Persister) Path() string { return p.path }

// Update loads the current settings, applies fn and saves the result.
// A missing file starts from Default().
func (p *Persister) Update(fn func(*Config)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := LoadOrDefault(p.path)
	if err != nil {
		return err
	}
	fn(cfg)
	if err := Save(p.path, cfg); err != nil {
		return fmt.Errorf("config: persist: %w", err)
	}
	return nil
}
