package cache

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// item is one row of the persistent cache table.
type item struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

func (item) TableName() string { return "cache_items" }

// SQLStorage is a Storage persisted in a SQLite database through gorm.
// Keys are indexed in lexical order.
type SQLStorage struct {
	db *gorm.DB
}

// OpenSQLStorage opens (creating if needed) the SQLite database at path and
// migrates the cache table.
func OpenSQLStorage(path string) (*SQLStorage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite %q: %w", path, err)
	}
	if err := db.AutoMigrate(&item{}); err != nil {
		return nil, fmt.Errorf("cache: migrate: %w", err)
	}
	return &SQLStorage{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStorage) Len() (int, error) {
	var n int64
	if err := s.db.Model(&item{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return int(n), nil
}

func (s *SQLStorage) Key(i int) (string, bool, error) {
	if i < 0 {
		return "", false, nil
	}
	var it item
	err := s.db.Order("name").Offset(i).Limit(1).Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: key %d: %w", i, err)
	}
	return it.Name, true, nil
}

func (s *SQLStorage) GetItem(key string) (string, bool, error) {
	var it item
	err := s.db.Where("name = ?", key).Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache: get %q: %w", key, err)
	}
	return it.Value, true, nil
}

func (s *SQLStorage) SetItem(key, value string) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&item{Name: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("cache: set %q: %w", key, err)
	}
	return nil
}

func (s *SQLStorage) RemoveItem(key string) error {
	if err := s.db.Where("name = ?", key).Delete(&item{}).Error; err != nil {
		return fmt.Errorf("cache: remove %q: %w", key, err)
	}
	return nil
}
