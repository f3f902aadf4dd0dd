// Package registry keeps the set of channels that receive news, and the
// platforms each channel follows, in a flat text file.
package registry

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fiffu/stobot/lib/models"
	"go.uber.org/zap"
)

const linePrefix = "channel:"

// Entry is the state kept for one channel. Channels that only have platform
// preferences (set before registering) are not persisted.
type Entry struct {
	Registered bool
	Platforms  models.Platforms
}

type Registry struct {
	path string
	log  *zap.Logger

	mu      sync.RWMutex
	entries map[uint64]Entry
}

func New(path string, log *zap.Logger) *Registry {
	return &Registry{
		path:    path,
		log:     log,
		entries: make(map[uint64]Entry),
	}
}

// Load reads the registry file at path. A missing file yields an empty registry.
func Load(path string, log *zap.Logger) (*Registry, error) {
	r := New(path, log)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Sugar().Infow("No saved channels yet", "path", path)
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %w", models.ErrPersistence, path, err)
	}
	defer f.Close()

	loaded, skipped, err := r.read(f)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", models.ErrPersistence, path, err)
	}
	log.Sugar().Infow("Loaded channels", "path", path, "channels", loaded, "skipped_lines", skipped)
	return r, nil
}

func (r *Registry) read(rd io.Reader) (loaded, skipped int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, platforms, ok := parseLine(line)
		if !ok {
			r.log.Sugar().Warnw("Skipping malformed channel line", "line", line)
			skipped++
			continue
		}
		r.entries[id] = Entry{Registered: true, Platforms: platforms}
		loaded++
	}
	return loaded, skipped, scanner.Err()
}

func parseLine(line string) (uint64, models.Platforms, bool) {
	if !strings.HasPrefix(line, linePrefix) {
		return 0, nil, false
	}
	parts := strings.Split(strings.TrimPrefix(line, linePrefix), "|")
	if len(parts) != 2 {
		return 0, nil, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, nil, false
	}
	platforms := models.ParsePlatforms(parts[1])
	if platforms.Empty() {
		platforms = models.DefaultPlatforms
	}
	return id, platforms, true
}

// Register subscribes a channel with the default platforms, keeping any
// platforms already chosen for it. It reports whether the channel was new.
func (r *Registry) Register(id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if ok && entry.Registered {
		return false, nil
	}
	if entry.Platforms.Empty() {
		entry.Platforms = models.DefaultPlatforms
	}
	entry.Registered = true
	r.entries[id] = entry
	return true, r.save()
}

// Unregister drops a channel. Unknown channels are a no-op.
func (r *Registry) Unregister(id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return false, nil
	}
	delete(r.entries, id)
	if !entry.Registered {
		return false, nil
	}
	return true, r.save()
}

func (r *Registry) SetPlatforms(id uint64, platforms models.Platforms) error {
	platforms = models.NewPlatforms(platforms...)
	if platforms.Empty() {
		return fmt.Errorf("%w: platform list cannot be empty", models.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.entries[id]
	entry.Platforms = platforms
	r.entries[id] = entry
	if !entry.Registered {
		return nil
	}
	return r.save()
}

// Platforms returns the platforms a channel follows, or the defaults.
func (r *Registry) Platforms(id uint64) models.Platforms {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if entry, ok := r.entries[id]; ok && !entry.Platforms.Empty() {
		return entry.Platforms
	}
	return models.DefaultPlatforms
}

func (r *Registry) IsRegistered(id uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id].Registered
}

// Channels lists registered channel ids in ascending order.
func (r *Registry) Channels() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedRegistered()
}

// Snapshot copies the registered channels and their platforms.
func (r *Registry) Snapshot() map[uint64]models.Platforms {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uint64]models.Platforms, len(r.entries))
	for id, entry := range r.entries {
		if entry.Registered {
			out[id] = entry.Platforms
		}
	}
	return out
}

// Save rewrites the registry file from the current state.
func (r *Registry) Save() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.save()
}

// save must be called with mu held. The file is written next to the target
// and renamed over it so readers never observe a half-written file.
func (r *Registry) save() error {
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %w", models.ErrPersistence, dir, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, id := range r.sortedRegistered() {
		fmt.Fprintf(w, "%s%d|%s\n", linePrefix, id, r.entries[id].Platforms)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", models.ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", models.ErrPersistence, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %w", models.ErrPersistence, r.path, err)
	}
	return nil
}

func (r *Registry) sortedRegistered() []uint64 {
	ids := make([]uint64, 0, len(r.entries))
	for id, entry := range r.entries {
		if entry.Registered {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
