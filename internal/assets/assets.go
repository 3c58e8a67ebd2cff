// Package assets loads product models from glTF/GLB files into scene graphs.
package assets

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/cooler-configurator/internal/engine/scene"
	"github.com/Faultbox/cooler-configurator/internal/engine/texture"
)

// Decode reads a glTF or GLB stream and imports its default scene.
// External images are resolved through f.
func Decode(ctx context.Context, r io.Reader, f texture.Fetcher, log *zap.Logger) (*scene.Node, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding gltf: %w", err)
	}
	im := &Importer{Fetcher: f, Logger: log}
	return im.Import(ctx, doc)
}

// Open imports a model file. Images referenced by relative URI are read
// from the file's directory.
func Open(ctx context.Context, path string, log *zap.Logger) (*scene.Node, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model %s: %w", path, err)
	}
	im := &Importer{
		Fetcher: &texture.DefaultFetcher{BaseDir: filepath.Dir(path)},
		Logger:  log,
	}
	root, err := im.Import(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("importing model %s: %w", path, err)
	}
	return root, nil
}

// Manager loads models from a list of root directories and keeps the
// imported graphs. Returned graphs are shared templates: clone before
// mutating them.
type Manager struct {
	roots []string
	log   *zap.Logger
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:   log.Named("assets"),
		cache: NewCache(),
	}
}

// AddRoot adds a directory to search.
// Roots are searched in reverse order (last added = highest priority).
func (m *Manager) AddRoot(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("adding asset root %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("adding asset root %s: not a directory", dir)
	}

	m.mu.Lock()
	m.roots = append(m.roots, dir)
	m.mu.Unlock()

	return nil
}

// Load returns the model at name, importing it on first use. A leading "/"
// is relative to the roots, matching the paths models are published under.
func (m *Manager) Load(ctx context.Context, name string) (*scene.Node, error) {
	// Check cache first
	if root, ok := m.cache.Get(name); ok {
		return root, nil
	}

	m.mu.RLock()
	roots := append([]string(nil), m.roots...)
	m.mu.RUnlock()

	// Without roots the name is a plain file path
	var candidates []string
	if len(roots) == 0 {
		candidates = []string{filepath.FromSlash(name)}
	}
	rel := filepath.FromSlash(strings.TrimPrefix(name, "/"))
	for i := len(roots) - 1; i >= 0; i-- {
		candidates = append(candidates, filepath.Join(roots[i], rel))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		root, err := Open(ctx, path, m.log)
		if err != nil {
			return nil, err
		}
		m.log.Info("model loaded", zap.String("path", path))
		return m.cache.Set(name, root), nil
	}

	return nil, fmt.Errorf("model %s: %w", name, fs.ErrNotExist)
}

// Close disposes every cached model.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache of imported models.
type Cache struct {
	data map[string]*scene.Node
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*scene.Node),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*scene.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	root, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return root, ok
}

// Set stores root under key and returns the cached value. When another
// caller stored key first, root is disposed and the earlier graph returned.
func (c *Cache) Set(key string, root *scene.Node) *scene.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.data[key]; ok {
		root.Dispose()
		return existing
	}
	c.data[key] = root
	return root
}

// Clear disposes and forgets every cached model.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, root := range c.data {
		root.Dispose()
	}
	c.data = make(map[string]*scene.Node)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
