package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/wricardo/rover-grid/fleet/config"
	"github.com/wricardo/rover-grid/fleet/rover"
)

// gridRowID is the primary key of the single stored grid
const gridRowID = 1

// RoverRow is the database model for a rover
type RoverRow struct {
	ID            string `gorm:"primaryKey;size:191"`
	X             int
	Y             int
	Heading       string `gorm:"size:8"`
	DeployedAt    time.Time
	LastCommandAt time.Time `gorm:"index"`
	Commands      int
	History       datatypes.JSON
	UpdatedAt     time.Time
}

func (RoverRow) TableName() string { return "rovers" }

// GridRow is the database model for the current grid
type GridRow struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	Description string
	Width       int
	Height      int
	Obstacles   datatypes.JSON
	UpdatedAt   time.Time
}

func (GridRow) TableName() string { return "grids" }

// GormPersistence implements Persistence on top of gorm
type GormPersistence struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) a SQLite database file
func OpenSQLite(path string) (*GormPersistence, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	return NewGormPersistence(db)
}

// OpenPostgres connects to PostgreSQL with the given DSN
func OpenPostgres(dsn string) (*GormPersistence, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)

	return NewGormPersistence(db)
}

// NewGormPersistence migrates the schema on db
func NewGormPersistence(db *gorm.DB) (*GormPersistence, error) {
	if err := db.AutoMigrate(&RoverRow{}, &GridRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &GormPersistence{db: db}, nil
}

// SaveRover upserts the rover row
func (g *GormPersistence) SaveRover(data *PersistedRover) error {
	if data == nil {
		return fmt.Errorf("rover cannot be nil")
	}

	history, err := json.Marshal(data.History)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	row := RoverRow{
		ID:            data.ID,
		X:             data.Position.Coordinates.X,
		Y:             data.Position.Coordinates.Y,
		Heading:       data.Position.Heading.String(),
		DeployedAt:    data.DeployedAt,
		LastCommandAt: data.LastCommandAt,
		Commands:      data.Commands,
		History:       datatypes.JSON(history),
	}

	if err := g.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save rover %s: %w", data.ID, err)
	}
	return nil
}

// LoadRover reads a rover row
func (g *GormPersistence) LoadRover(id string) (*PersistedRover, error) {
	var row RoverRow
	if err := g.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, fmt.Errorf("failed to load rover %s: %w", id, err)
	}

	heading, err := rover.ParseHeading(row.Heading)
	if err != nil {
		return nil, fmt.Errorf("rover %s: %w", id, err)
	}

	var history []HistoryEntry
	if len(row.History) > 0 {
		if err := json.Unmarshal(row.History, &history); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}

	return &PersistedRover{
		ID:            row.ID,
		Position:      rover.NewPosition(rover.NewCoordinates(row.X, row.Y), heading),
		DeployedAt:    row.DeployedAt,
		LastCommandAt: row.LastCommandAt,
		Commands:      row.Commands,
		History:       history,
	}, nil
}

// DeleteRover removes a rover row
func (g *GormPersistence) DeleteRover(id string) error {
	result := g.db.Delete(&RoverRow{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete rover %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{ID: id}
	}
	return nil
}

// ListRovers returns all rover ids
func (g *GormPersistence) ListRovers() ([]string, error) {
	var ids []string
	if err := g.db.Model(&RoverRow{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list rovers: %w", err)
	}
	return ids, nil
}

// SaveGrid upserts the single grid row
func (g *GormPersistence) SaveGrid(def *config.GridDefinition) error {
	obstacles, err := json.Marshal(def.Obstacles)
	if err != nil {
		return fmt.Errorf("failed to marshal obstacles: %w", err)
	}

	row := GridRow{
		ID:          gridRowID,
		Name:        def.Name,
		Description: def.Description,
		Width:       def.Width,
		Height:      def.Height,
		Obstacles:   datatypes.JSON(obstacles),
	}

	if err := g.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save grid: %w", err)
	}
	return nil
}

// LoadGrid reads the stored grid or returns ErrNoGrid
func (g *GormPersistence) LoadGrid() (*config.GridDefinition, error) {
	var row GridRow
	if err := g.db.First(&row, gridRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoGrid
		}
		return nil, fmt.Errorf("failed to load grid: %w", err)
	}

	def := &config.GridDefinition{
		Name:        row.Name,
		Description: row.Description,
		Width:       row.Width,
		Height:      row.Height,
	}
	if len(row.Obstacles) > 0 {
		if err := json.Unmarshal(row.Obstacles, &def.Obstacles); err != nil {
			return nil, fmt.Errorf("failed to unmarshal obstacles: %w", err)
		}
	}
	return def, nil
}

// Close releases the database connection
func (g *GormPersistence) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
