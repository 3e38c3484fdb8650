package gormdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options - общие настройки подключения.
type Options struct {
	// MaxConns - размер пула соединений Postgres. 0 - значение pgxpool по умолчанию.
	MaxConns int32
	// Logger - логгер SQL-запросов. nil - запросы не логируются.
	Logger logger.Interface
	// Now - источник времени для pub_date и created.
	Now func() time.Time
}

func (o Options) gormConfig() *gorm.Config {
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         o.Logger,
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	if o.Now != nil {
		cfg.NowFunc = o.Now
	}
	return cfg
}

// OpenPostgres подключается к PostgreSQL через пул pgx и выполняет миграцию схемы.
func OpenPostgres(ctx context.Context, dsn string, opts Options) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	poolCfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), opts.gormConfig())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	store, err := New(db, opts)
	if err != nil {
		pool.Close()
		return nil, err
	}
	store.closers = append(store.closers, func() error { pool.Close(); return nil })
	return store, nil
}

// OpenSQLite открывает файл SQLite с включенными внешними ключами.
// Без них не работают ON DELETE CASCADE и SET NULL.
func OpenSQLite(path string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_busy_timeout=5000", path)
	db, err := gorm.Open(sqlite.Open(dsn), opts.gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite не умеет параллельную запись
	sqlDB.SetMaxOpenConns(1)

	return New(db, opts)
}
