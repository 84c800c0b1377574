package database

import (
	"fmt"

	"watchparty/internal/domain/chat"
	"watchparty/internal/domain/room"
)

// Migrate creates the required extensions and applies the GORM
// auto-migrations for all tables.
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	// Creating extensions usually requires superuser privileges. If this
	// fails, ensure the extension is pre-installed or the user has permissions.
	if err := DB.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("failed to create extension: %w", err)
	}
	return DB.AutoMigrate(
		&room.Room{},
		&room.Member{},
		&room.RoomSequence{},
		&chat.Message{},
		&chat.MessageReaction{},
	)
}

// TableExists reports whether a table is present in the current schema.
func TableExists(table string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database not connected")
	}
	return DB.Migrator().HasTable(table), nil
}

// GetTableCount returns the number of rows in a table.
func GetTableCount(table string) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not connected")
	}
	var count int64
	err := DB.Table(table).Count(&count).Error
	return count, err
}
