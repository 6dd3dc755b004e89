package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// grid file extensions in lookup order
var gridExtensions = []string{".json", ".hcl"}

// Manager handles grid definition loading and caching
type Manager struct {
	gridDir     string
	defaultGrid *GridDefinition
	grids       map[string]*GridDefinition
	mu          sync.RWMutex
}

// NewManager creates a new grid catalog rooted at gridDir
func NewManager(gridDir string) (*Manager, error) {
	if _, err := os.Stat(gridDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("grid directory does not exist: %s", gridDir)
	}

	m := &Manager{
		gridDir: gridDir,
		grids:   make(map[string]*GridDefinition),
	}

	if err := m.loadDefaultGrid(); err != nil {
		return nil, fmt.Errorf("failed to load default grid: %w", err)
	}

	return m, nil
}

// LoadGrid loads a grid definition by name. The extension is optional;
// .json is tried before .hcl. The name "default" falls back to the built-in grid.
func (m *Manager) LoadGrid(name string) (*GridDefinition, error) {
	id := gridID(name)
	if id == "" || id != filepath.Base(id) {
		return nil, fmt.Errorf("%w: %q", ErrGridNotFound, name)
	}

	m.mu.RLock()
	if def, exists := m.grids[id]; exists {
		m.mu.RUnlock()
		return def, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if def, exists := m.grids[id]; exists {
		return def, nil
	}

	def, err := m.readGrid(name)
	if err != nil {
		if err == ErrGridNotFound && id == DefaultGridName {
			return DefaultGrid(), nil
		}
		return nil, err
	}

	m.grids[id] = def
	return def, nil
}

// readGrid finds and parses the file for name. Caller holds the lock.
func (m *Manager) readGrid(name string) (*GridDefinition, error) {
	candidates := []string{name}
	if ext := filepath.Ext(name); !isGridExtension(ext) {
		candidates = candidates[:0]
		for _, ext := range gridExtensions {
			candidates = append(candidates, name+ext)
		}
	}

	for _, filename := range candidates {
		path := filepath.Join(m.gridDir, filename)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to stat grid file: %w", err)
		}

		def, err := ParseGridFile(path)
		if err != nil {
			return nil, err
		}
		if def.Name == "" {
			def.Name = gridID(filename)
		}
		return def, nil
	}

	return nil, ErrGridNotFound
}

// ParseGridFile reads and validates a single .json or .hcl grid file
func ParseGridFile(path string) (*GridDefinition, error) {
	var def *GridDefinition

	switch filepath.Ext(path) {
	case ".hcl":
		parsed, err := parseHCLGrid(path)
		if err != nil {
			return nil, err
		}
		def = parsed
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read grid file: %w", err)
		}
		def = &GridDefinition{}
		if err := json.Unmarshal(data, def); err != nil {
			return nil, fmt.Errorf("failed to parse grid %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported grid file %s", ErrInvalidGrid, path)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return def, nil
}

// ListGrids returns information about all loadable grids, sorted by id
func (m *Manager) ListGrids() ([]*GridSummary, error) {
	entries, err := os.ReadDir(m.gridDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read grid directory: %w", err)
	}

	var grids []*GridSummary
	seen := make(map[string]bool)

	for _, entry := range entries {
		if entry.IsDir() || !isGridExtension(filepath.Ext(entry.Name())) {
			continue
		}

		id := gridID(entry.Name())
		if seen[id] {
			continue
		}

		def, err := m.LoadGrid(entry.Name())
		if err != nil {
			// Skip invalid grids
			continue
		}
		seen[id] = true

		grids = append(grids, &GridSummary{
			Filename:    entry.Name(),
			GridID:      id,
			Name:        def.Name,
			Description: def.Description,
			Width:       def.Width,
			Height:      def.Height,
			Obstacles:   len(def.Obstacles),
		})
	}

	sort.Slice(grids, func(i, j int) bool { return grids[i].GridID < grids[j].GridID })
	return grids, nil
}

// GetDefault returns the default grid definition
func (m *Manager) GetDefault() *GridDefinition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultGrid
}

// SetDefault sets the default grid by name
func (m *Manager) SetDefault(name string) error {
	def, err := m.LoadGrid(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultGrid = def
	return nil
}

// RefreshCache drops cached definitions and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.grids = make(map[string]*GridDefinition)
	m.mu.Unlock()

	return m.loadDefaultGrid()
}

// SaveGrid writes a definition to disk as JSON
func (m *Manager) SaveGrid(name string, def *GridDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	id := gridID(name)
	if id == "" || id != filepath.Base(id) {
		return fmt.Errorf("%w: bad grid name %q", ErrInvalidGrid, name)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal grid: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.gridDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write grid file: %w", err)
	}

	m.mu.Lock()
	m.grids[id] = def
	m.mu.Unlock()

	return nil
}

// loadDefaultGrid uses default.json/default.hcl when present, else the built-in grid
func (m *Manager) loadDefaultGrid() error {
	def, err := m.LoadGrid(DefaultGridName)
	if err != nil {
		if err == ErrGridNotFound {
			def = DefaultGrid()
		} else {
			return err
		}
	}

	m.mu.Lock()
	m.defaultGrid = def
	m.mu.Unlock()
	return nil
}

func gridID(name string) string {
	ext := filepath.Ext(name)
	if isGridExtension(ext) {
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func isGridExtension(ext string) bool {
	for _, e := range gridExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
