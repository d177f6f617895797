package profile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store owns the in-memory copy of launch.conf and serializes access to it.
// All accessors return copies so callers can never alias internal state.
type Store struct {
	path string

	mu  sync.RWMutex
	doc *Document
}

// NewStore creates a store bound to path. Call Load before first use.
func NewStore(path string) *Store {
	return &Store{path: path, doc: &Document{}}
}

func (s *Store) Path() string { return s.path }

// Load replaces the in-memory document with the on-disk one.
func (s *Store) Load() error {
	doc, err := ReadDocument(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// Save persists the current in-memory document. The lock is held across the
// write so a concurrent mutation cannot race the marshal.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return WriteDocument(s.path, s.doc)
}

// Profiles returns all profiles in launch order.
func (s *Store) Profiles() []Profile {
	s.mu.RLock()
	out := make([]Profile, 0, len(s.doc.Profiles))
	for _, p := range s.doc.Profiles {
		out = append(out, p.clone())
	}
	s.mu.RUnlock()
	SortLaunchOrder(out)
	return out
}

// Get looks a profile up by name.
func (s *Store) Get(name string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.doc.Profiles {
		if p.Name == name {
			return p.clone(), true
		}
	}
	return Profile{}, false
}

// Put inserts or replaces a profile by name.
func (s *Store) Put(p Profile) error {
	p.Normalize()
	if p.Name == "" {
		return fmt.Errorf("profile requires a name or path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Profiles {
		if s.doc.Profiles[i].Name == p.Name {
			s.doc.Profiles[i] = p
			return nil
		}
	}
	s.doc.Profiles = append(s.doc.Profiles, p)
	return nil
}

// Delete removes a profile by name; removing an unknown name is a no-op.
func (s *Store) Delete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doc.Profiles {
		if s.doc.Profiles[i].Name == name {
			s.doc.Profiles = append(s.doc.Profiles[:i], s.doc.Profiles[i+1:]...)
			return
		}
	}
}

// GroupMode returns the configured mode for a group, defaulting to ModeOn.
func (s *Store) GroupMode(group string) GroupMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if gm, ok := s.doc.GroupModes[group]; ok {
		return gm
	}
	return GroupMode{Mode: ModeOn}
}

// SetGroupMode records a group's mode.
func (s *Store) SetGroupMode(group string, gm GroupMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.GroupModes == nil {
		s.doc.GroupModes = make(map[string]GroupMode)
	}
	s.doc.GroupModes[group] = gm
}

// ExternalGroups returns group name -> external key for every group whose
// mode is external.
func (s *Store) ExternalGroups() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	for g, gm := range s.doc.GroupModes {
		if gm.Mode == ModeExternal {
			out[g] = gm.ExternalKey
		}
	}
	return out
}

// ProfilesInGroups returns the profiles of the named groups in launch order.
func (s *Store) ProfilesInGroups(groups ...string) []Profile {
	want := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		want[g] = struct{}{}
	}
	s.mu.RLock()
	var out []Profile
	for _, p := range s.doc.Profiles {
		if _, ok := want[p.Group]; ok {
			out = append(out, p.clone())
		}
	}
	s.mu.RUnlock()
	SortLaunchOrder(out)
	return out
}

// AutoStartSet computes the profiles that launch at engine startup. A group
// with an explicit on mode auto-starts as a whole, overriding the members'
// own flags; off and external groups never auto-start here. Profiles in
// unmoded groups and ungrouped profiles use their own autoStart flag.
func (s *Store) AutoStartSet() []Profile {
	s.mu.RLock()
	var out []Profile
	for _, p := range s.doc.Profiles {
		if p.Group != "" {
			if gm, ok := s.doc.GroupModes[p.Group]; ok {
				switch gm.Mode {
				case ModeOff, ModeExternal:
					continue
				case ModeOn:
					out = append(out, p.clone())
					continue
				}
			}
		}
		if p.AutoStart {
			out = append(out, p.clone())
		}
	}
	s.mu.RUnlock()
	SortLaunchOrder(out)
	return out
}

// RedisSettings returns the trigger store location.
func (s *Store) RedisSettings() RedisSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Redis
}

// Watch reloads the store when launch.conf changes on disk and then invokes
// onReload. Editors replace files via rename, so the parent directory is
// watched rather than the file itself. Events are debounced because a single
// save often produces several.
func (s *Store) Watch(ctx context.Context, onReload func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}
	base := filepath.Base(s.path)
	go func() {
		defer func() { _ = w.Close() }()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				pending = time.After(200 * time.Millisecond)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("launch.conf watch error", "err", err)
			case <-pending:
				pending = nil
				if err := s.Load(); err != nil {
					slog.Warn("launch.conf reload failed", "err", err)
					continue
				}
				slog.Info("launch.conf reloaded", "path", s.path)
				if onReload != nil {
					onReload()
				}
			}
		}
	}()
	return nil
}
