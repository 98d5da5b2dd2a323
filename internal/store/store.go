// Package store persists extracted cards with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDSN is the sqlite database used when none is configured.
const DefaultDSN = "cardscan.db"

// ErrNotFound is returned when no card has the requested id.
var ErrNotFound = errors.New("card not found")

// Card is a persisted visiting card.
type Card struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Email     *string   `gorm:"size:150" json:"email"`
	Address   string    `gorm:"type:text" json:"address"`
	Phone     *string   `gorm:"size:50" json:"phone"`
	ImageName string    `gorm:"size:255" json:"image_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the table name stable across model renames.
func (Card) TableName() string { return "visiting_cards" }

// Record returns the card as an extraction record.
func (c Card) Record() card.Record {
	r := card.Record{Name: c.Name, Address: c.Address}
	if c.Email != nil {
		r.Email = *c.Email
	}
	if c.Phone != nil {
		r.Phone = *c.Phone
	}
	return r
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Store persists cards.
type Store interface {
	Save(ctx context.Context, rec card.Record, imageName string) (uint, error)
	SetImageName(ctx context.Context, id uint, imageName string) error
	Get(ctx context.Context, id uint) (Card, error)
	List(ctx context.Context, limit, offset int) ([]Card, error)
	Close() error
}

// Config selects the database.
type Config struct {
	Driver string
	DSN    string
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema.
func Open(cfg Config) (*GormStore, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&Card{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &GormStore{db: db}, nil
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	dsn := cfg.DSN
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite:
		if dsn == "" {
			dsn = DefaultDSN
		}
		return sqlite.Open(dsn), nil
	case DriverPostgres:
		if dsn == "" {
			return nil, errors.New("postgres driver requires a dsn")
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// Save inserts rec and returns the new id.
func (s *GormStore) Save(ctx context.Context, rec card.Record, imageName string) (uint, error) {
	c := Card{
		Name:      rec.Name,
		Email:     nullable(rec.Email),
		Address:   rec.Address,
		Phone:     nullable(rec.Phone),
		ImageName: imageName,
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return 0, fmt.Errorf("failed to save card: %w", err)
	}
	return c.ID, nil
}

// SetImageName records the stored file name of a card.
func (s *GormStore) SetImageName(ctx context.Context, id uint, imageName string) error {
	res := s.db.WithContext(ctx).Model(&Card{}).Where("id = ?", id).Update("image_name", imageName)
	if res.Error != nil {
		return fmt.Errorf("failed to update card %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads a card by id.
func (s *GormStore) Get(ctx context.Context, id uint) (Card, error) {
	var c Card
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Card{}, ErrNotFound
	}
	if err != nil {
		return Card{}, fmt.Errorf("failed to load card %d: %w", id, err)
	}
	return c, nil
}

// List returns cards newest first. A non-positive limit returns all cards.
func (s *GormStore) List(ctx context.Context, limit, offset int) ([]Card, error) {
	q := s.db.WithContext(ctx).Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var cards []Card
	if err := q.Find(&cards).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
