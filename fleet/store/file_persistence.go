package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/rover-grid/fleet/config"
)

const gridFileName = "grid.json"

// FilePersistence implements Persistence with one JSON file per rover
type FilePersistence struct {
	dir      string
	roverDir string
}

// NewFilePersistence creates the storage directory layout under dir
func NewFilePersistence(dir string) (*FilePersistence, error) {
	roverDir := filepath.Join(dir, "rovers")
	if err := os.MkdirAll(roverDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create rovers directory: %w", err)
	}

	return &FilePersistence{
		dir:      dir,
		roverDir: roverDir,
	}, nil
}

// SaveRover persists a rover to a JSON file
func (fp *FilePersistence) SaveRover(data *PersistedRover) error {
	if data == nil {
		return fmt.Errorf("rover cannot be nil")
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rover data: %w", err)
	}

	return writeFileAtomic(fp.roverPath(data.ID), jsonData)
}

// LoadRover reads a rover from its JSON file
func (fp *FilePersistence) LoadRover(id string) (*PersistedRover, error) {
	jsonData, err := os.ReadFile(fp.roverPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to read rover file: %w", err)
	}

	var data PersistedRover
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rover data: %w", err)
	}
	return &data, nil
}

// DeleteRover removes a rover file
func (fp *FilePersistence) DeleteRover(id string) error {
	if err := os.Remove(fp.roverPath(id)); err != nil {
		if os.IsNotExist(err) {
			return &NotFoundError{ID: id}
		}
		return fmt.Errorf("failed to remove rover file: %w", err)
	}
	return nil
}

// ListRovers returns all persisted rover ids
func (fp *FilePersistence) ListRovers() ([]string, error) {
	entries, err := os.ReadDir(fp.roverDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read rovers directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveGrid writes the current grid definition
func (fp *FilePersistence) SaveGrid(def *config.GridDefinition) error {
	jsonData, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal grid: %w", err)
	}
	return writeFileAtomic(filepath.Join(fp.dir, gridFileName), jsonData)
}

// LoadGrid reads the saved grid definition
func (fp *FilePersistence) LoadGrid() (*config.GridDefinition, error) {
	jsonData, err := os.ReadFile(filepath.Join(fp.dir, gridFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoGrid
		}
		return nil, fmt.Errorf("failed to read grid file: %w", err)
	}

	var def config.GridDefinition
	if err := json.Unmarshal(jsonData, &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal grid: %w", err)
	}
	return &def, nil
}

// Close is a no-op for files
func (fp *FilePersistence) Close() error {
	return nil
}

// roverPath escapes the id so it is always a single file name
func (fp *FilePersistence) roverPath(id string) string {
	return filepath.Join(fp.roverDir, url.PathEscape(id)+".json")
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
