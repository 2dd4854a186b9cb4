package cronograma

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDatabase opens the schedule database for driver "postgres" or "sqlite"
func OpenDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported schedule driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return db, nil
}

// GormStore persists items in a SQL table
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the items table and returns a store on db
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Item{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Create(ctx context.Context, item *Item) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Item{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}
		item.Order = int(count) + 1
		if err := tx.Create(item).Error; err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}
		return nil
	})
}

func (s *GormStore) List(ctx context.Context) ([]Item, error) {
	return list(s.db.WithContext(ctx))
}

func list(tx *gorm.DB) ([]Item, error) {
	var items []Item
	if err := tx.Order("position asc, id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*Item, error) {
	return get(s.db.WithContext(ctx), id)
}

func get(tx *gorm.DB, id string) (*Item, error) {
	var item Item
	err := tx.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

func (s *GormStore) Replace(ctx context.Context, id string, item *Item) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := get(tx, id)
		if err != nil {
			return err
		}
		item.ID = id
		item.Order = current.Order
		item.CreatedAt = current.CreatedAt
		if err := tx.Save(item).Error; err != nil {
			return fmt.Errorf("failed to replace item: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&Item{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete item: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		items, err := list(tx)
		if err != nil {
			return err
		}
		for i, item := range items {
			if item.Order == i+1 {
				continue
			}
			if err := setPosition(tx, item.ID, i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) Reorder(ctx context.Context, ids []string) ([]Item, error) {
	var out []Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := list(tx)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(items))
		for _, item := range items {
			known[item.ID] = true
		}
		if err := checkPermutation(ids, len(items), func(id string) bool { return known[id] }); err != nil {
			return err
		}

		for i, id := range ids {
			if err := setPosition(tx, id, i+1); err != nil {
				return err
			}
		}
		out, err = list(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func setPosition(tx *gorm.DB, id string, pos int) error {
	if err := tx.Model(&Item{}).Where("id = ?", id).Update("position", pos).Error; err != nil {
		return fmt.Errorf("failed to update position: %w", err)
	}
	return nil
}
