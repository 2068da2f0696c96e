// Package assets resolves image paths against the filesystem and GRF
// archives, and caches decoded images.
package assets

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/texcore/pkg/grf"
	"github.com/Faultbox/texcore/pkg/texture"
)

// ErrNotFound is returned when a path is neither on disk nor in any archive.
var ErrNotFound = errors.New("asset not found")

// Manager loads images from disk or from GRF archives.
type Manager struct {
	loader   *texture.Loader
	cache    *Cache
	log      *zap.Logger
	archives []*grf.Archive
	mu       sync.RWMutex
}

// NewManager creates a manager. A nil cache disables caching and a nil
// logger disables logging.
func NewManager(loader *texture.Loader, cache *Cache, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		loader: loader,
		cache:  cache,
		log:    log,
	}
}

// AddArchive opens a GRF archive and adds it to the search list.
// Archives are searched in reverse order (last added = highest priority).
func (m *Manager) AddArchive(path string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	m.addArchive(archive)
	m.log.Info("archive added", zap.String("path", path), zap.Int("files", len(archive.List())))
	return nil
}

func (m *Manager) addArchive(archive *grf.Archive) {
	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.mu.Unlock()
}

// ReadFile returns the raw bytes of path from the highest priority archive
// that contains it.
func (m *Manager) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.archives) - 1; i >= 0; i-- {
		data, err := m.archives[i].Read(path)
		if errors.Is(err, grf.ErrNotFound) {
			continue
		}
		return data, err
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
}

// LoadImage decodes the image at path. Files on disk take precedence over
// archive entries. The returned image is owned by the caller.
func (m *Manager) LoadImage(path string) (*texture.Image, error) {
	if m.cache != nil {
		if img, ok := m.cache.Get(path); ok {
			return img.Clone(), nil
		}
	}

	img, err := m.load(path)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Set(path, img.Clone())
	}
	return img, nil
}

func (m *Manager) load(path string) (*texture.Image, error) {
	if _, err := os.Stat(path); err == nil {
		return m.loader.Load(path)
	}

	data, err := m.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m.log.Debug("loading from archive", zap.String("path", path), zap.Int("bytes", len(data)))
	return m.loader.LoadReader(bytes.NewReader(data), path)
}

// Close closes all archives and empties the cache.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, archive := range m.archives {
		err = multierr.Append(err, archive.Close())
	}
	m.archives = nil
	if m.cache != nil {
		m.cache.Clear()
	}
	return err
}

// Cache holds decoded images keyed by path. A positive maxEntries bounds
// the cache; the least recently used image is evicted first.
type Cache struct {
	mu         sync.Mutex
	images     map[string]*cacheEntry
	maxEntries int
	clock      uint64

	// Stats
	hits   int
	misses int
}

type cacheEntry struct {
	img  *texture.Image
	used uint64
}

// NewCache creates a cache. maxEntries <= 0 means unbounded.
func NewCache(maxEntries int) *Cache {
	return &Cache{
		images:     make(map[string]*cacheEntry),
		maxEntries: maxEntries,
	}
}

// Get retrieves an image from the cache.
func (c *Cache) Get(key string) (*texture.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.images[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.clock++
	e.used = c.clock
	return e.img, true
}

// Set stores an image in the cache.
func (c *Cache) Set(key string, img *texture.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clock++
	if e, ok := c.images[key]; ok {
		e.img, e.used = img, c.clock
		return
	}
	if c.maxEntries > 0 && len(c.images) >= c.maxEntries {
		c.evictOldest()
	}
	c.images[key] = &cacheEntry{img: img, used: c.clock}
}

func (c *Cache) evictOldest() {
	var oldest *string
	var oldestUse uint64
	for key, e := range c.images {
		if oldest == nil || e.used < oldestUse {
			k := key
			oldest, oldestUse = &k, e.used
		}
	}
	if oldest != nil {
		delete(c.images, *oldest)
	}
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

// Clear empties the cache and resets the stats.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = make(map[string]*cacheEntry)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
