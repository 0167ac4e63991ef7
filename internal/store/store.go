package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-authgate/pairgate/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// partialIndexes are not expressible as struct tags. Both SQLite and
// PostgreSQL accept the syntax.
var partialIndexes = []string{
	// At most one active device per fingerprint.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_devices_active_fingerprint
		ON devices (fingerprint) WHERE is_active`,
}

type Store struct {
	db *gorm.DB
}

// New opens the database and migrates the schema. An in-memory SQLite DSN
// is pinned to a single connection so every caller sees the same database.
func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto migrate
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Device{},
		&models.DeviceSession{},
		&models.PairingCode{},
		&models.TrustEdge{},
		&models.DeviceKey{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	for _, stmt := range partialIndexes {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Info().Str("driver", driver).Msg("database ready")

	return &Store{db: db}, nil
}

// Transaction runs fn against a Store bound to a single database transaction.
// Returning an error from fn rolls the transaction back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM database connection
func (s *Store) DB() *gorm.DB {
	return s.db
}

// LockPairingCode serializes transactions that are about to issue code. On
// PostgreSQL it takes a transaction scoped advisory lock; SQLite runs a single
// writer and needs nothing. It must be called inside Transaction.
func (s *Store) LockPairingCode(ctx context.Context, code string) error {
	if s.db.Dialector.Name() != "postgres" {
		return nil
	}
	return s.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "pairing_code:"+code).
		Error
}

// duplicateKey maps gorm's translated unique violation onto ErrDuplicateKey.
func duplicateKey(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	return err
}

// notFound maps gorm's not found error onto ErrRecordNotFound.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}
