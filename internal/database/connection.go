package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/interline-booking-backend/internal/config"
	"github.com/wb-go/wbf/retry"
)

// Transaction-mode poolers (PgBouncer, Supavisor) listen here and reject
// named prepared statements.
const poolerPort = 6543

var (
	pingTimeout  = 5 * time.Second
	pingStrategy = retry.Strategy{Attempts: 3, Delay: time.Second, Backoff: 2}

	passwordPattern = regexp.MustCompile(`(postgres(?:ql)?://[^:]+:)([^@]+)(@.+)`)
)

// DB is the query surface the repositories need
type DB interface {
	Get(dest interface{}, query string, args ...interface{}) error
	Select(dest interface{}, query string, args ...interface{}) error
	Exec(query string, args ...interface{}) (sql.Result, error)
	PingContext(ctx context.Context) error
	Close() error
}

// PostgresDB is the sqlx pool backing booking records, agent balances and
// search logs
type PostgresDB struct {
	*sqlx.DB
}

func maskPassword(url string) string {
	return passwordPattern.ReplaceAllString(url, "${1}****${3}")
}

// parseConnConfig parses the database URL. Connections through a
// transaction-mode pooler switch to the simple protocol.
func parseConnConfig(url string) (*pgx.ConnConfig, bool, error) {
	if url == "" {
		return nil, false, errors.New("database URL is required")
	}
	connConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pooled := connConfig.Port == poolerPort
	if pooled {
		connConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	return connConfig, pooled, nil
}

// NewConnection opens the pool and waits for the server to answer a ping.
// A database still starting up gets a few attempts before giving up.
func NewConnection(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (*PostgresDB, error) {
	connConfig, pooled, err := parseConnConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	log := logger.WithFields(logrus.Fields{
		"url":            maskPassword(cfg.URL),
		"host":           connConfig.Host,
		"database":       connConfig.Database,
		"pooler":         pooled,
		"max_open":       cfg.MaxConnections,
		"max_idle":       cfg.MaxIdleConnections,
		"conn_lifetime":  cfg.ConnMaxLifetime.String(),
		"conn_idle_time": (cfg.ConnMaxLifetime / 2).String(),
	})
	log.Info("Opening database pool")

	db := &PostgresDB{DB: sqlx.NewDb(stdlib.OpenDB(*connConfig), "pgx")}
	db.configurePool(cfg)

	if err := db.waitReady(ctx, log); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (db *PostgresDB) configurePool(cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)
}

func (db *PostgresDB) waitReady(ctx context.Context, log *logrus.Entry) error {
	attempt := 0
	err := retry.DoContext(ctx, pingStrategy, func() error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.WithError(err).WithField("attempt", attempt).Warn("Database not ready")
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Check pings the database within timeout and reports pool usage
func (db *PostgresDB) Check(ctx context.Context, timeout time.Duration) (sql.DBStats, error) {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return sql.DBStats{}, err
	}
	return db.Stats(), nil
}
