package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Options struct {
	ConnectTimeout  time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const (
	DefaultConnectTimeout  = 10 * time.Second
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 5 * time.Minute
)

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = DefaultMaxOpenConns
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = DefaultMaxIdleConns
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	return o
}

// Open builds the pool without touching the network. Every physical
// connection the pool dials is bounded by ConnectTimeout.
func Open(databaseURL string, opts Options) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}
	opts = opts.withDefaults()

	dsn, err := withConnectTimeout(databaseURL, opts.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	return db, nil
}

// Connect opens the pool and waits at most ConnectTimeout for the first ping.
func Connect(ctx context.Context, databaseURL string, opts Options, logger *logrus.Logger) (*sql.DB, error) {
	opts = opts.withDefaults()
	db, err := Open(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"max_open_conns":    opts.MaxOpenConns,
		"max_idle_conns":    opts.MaxIdleConns,
		"conn_max_lifetime": opts.ConnMaxLifetime,
		"connect_timeout":   opts.ConnectTimeout,
	}).Debug("Database connection pool configured")

	if err := Ping(ctx, db, opts.ConnectTimeout); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully")
	return db, nil
}

// withConnectTimeout adds connect_timeout (whole seconds, at least 1) to a
// URL or key=value DSN unless the caller already set one.
func withConnectTimeout(dsn string, timeout time.Duration) (string, error) {
	seconds := strconv.Itoa(int(math.Max(1, math.Ceil(timeout.Seconds()))))

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		if q.Get("connect_timeout") == "" {
			q.Set("connect_timeout", seconds)
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	if strings.Contains(dsn, "connect_timeout=") {
		return dsn, nil
	}
	return strings.TrimSpace(dsn) + " connect_timeout=" + seconds, nil
}

// Ping runs a bounded SELECT 1 against the pool.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}
	if result != 1 {
		return fmt.Errorf("unexpected query result: got %d, expected 1", result)
	}
	return nil
}
