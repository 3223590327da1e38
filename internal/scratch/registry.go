package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registry owns every intermediate file the pipeline writes. Each handle has
// exactly one owning item; releasing is deterministic and happens when a file
// is superseded or its item reaches a terminal state, never via GC.
type Registry struct {
	dir string

	mu       sync.Mutex
	owned    map[string][]string // item id -> owned file paths
	created  int
	released int
}

// NewRegistry builds a registry rooted at dir. The directory is created if
// missing.
func NewRegistry(dir string) (*Registry, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("scratch directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &Registry{
		dir:   dir,
		owned: make(map[string][]string),
	}, nil
}

// Dir returns the registry root.
func (r *Registry) Dir() string { return r.dir }

// Create allocates a new scratch file path owned by itemID. The file itself
// is not created; the caller hands the path to a codec adapter.
func (r *Registry) Create(itemID, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(r.dir, itemID+"-"+uuid.NewString()+ext)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.owned[itemID] = append(r.owned[itemID], path)
	r.created++
	return path
}

// Adopt transfers ownership of an existing file (for example a URL download)
// to itemID.
func (r *Registry) Adopt(itemID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.owned[itemID] {
		if existing == path {
			return
		}
	}
	r.owned[itemID] = append(r.owned[itemID], path)
	r.created++
}

// Release frees one handle owned by itemID. Releasing a path the item does
// not own is a no-op.
func (r *Registry) Release(itemID, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := r.owned[itemID]
	for i, existing := range paths {
		if existing != path {
			continue
		}
		r.owned[itemID] = append(paths[:i], paths[i+1:]...)
		r.released++
		_ = os.Remove(path)
		break
	}
	if len(r.owned[itemID]) == 0 {
		delete(r.owned, itemID)
	}
}

// ReleaseSuperseded frees every handle owned by itemID except keep. Used when
// a new transcode attempt replaces earlier intermediates that are no longer
// referenced.
func (r *Registry) ReleaseSuperseded(itemID, keep string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := r.owned[itemID]
	remaining := paths[:0]
	for _, existing := range paths {
		if existing == keep {
			remaining = append(remaining, existing)
			continue
		}
		r.released++
		_ = os.Remove(existing)
	}
	if len(remaining) == 0 {
		delete(r.owned, itemID)
	} else {
		r.owned[itemID] = remaining
	}
}

// ReleaseAll frees every handle owned by itemID. Called on terminal states
// and retry.
func (r *Registry) ReleaseAll(itemID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, path := range r.owned[itemID] {
		r.released++
		_ = os.Remove(path)
	}
	delete(r.owned, itemID)
}

// Owned returns the paths currently owned by itemID.
func (r *Registry) Owned(itemID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, len(r.owned[itemID]))
	copy(paths, r.owned[itemID])
	return paths
}

// Owns reports whether itemID currently owns path.
func (r *Registry) Owns(itemID, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.owned[itemID] {
		if existing == path {
			return true
		}
	}
	return false
}

// Counters reports lifetime create/release totals. Balanced totals with no
// remaining owners means no leak.
func (r *Registry) Counters() (created, released int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.released
}
