package itf

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/kanban/modules"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/eventbus"
)

func NewPool(dbOpts string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	config, err := pgxpool.ParseConfig(dbOpts)
	if err != nil {
		return nil, err
	}
	// Concurrency tests hold one connection per worker while waiting on the board lock.
	config.MaxConns = 24
	config.MinConns = 1
	config.MaxConnLifetime = time.Minute * 5
	config.MaxConnIdleTime = time.Second * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	return pool, nil
}

// DatabaseManager owns a throwaway database named after the running test.
type DatabaseManager struct {
	pool   *pgxpool.Pool
	dbName string
}

// NewDatabaseManager creates a fresh database and drops it when the test ends. When postgres is
// unreachable the test is skipped, unless CI is set in which case it fails.
func NewDatabaseManager(tb testing.TB) *DatabaseManager {
	tb.Helper()

	dbName := sanitizeDBName(tb.Name())
	if err := CreateDB(context.Background(), dbName); err != nil {
		if isCI() {
			tb.Fatalf("create test database: %v", err)
		}
		tb.Skipf("postgres is not reachable; skipping integration test: %v", err)
	}
	pool, err := NewPool(DbOpts(dbName))
	if err != nil {
		tb.Fatal(err)
	}

	dm := &DatabaseManager{pool: pool, dbName: dbName}
	tb.Cleanup(func() {
		dm.Close()
		if err := DropDB(context.Background(), dbName); err != nil {
			tb.Logf("Warning: failed to drop %s: %v", dbName, err)
		}
	})
	return dm
}

func (dm *DatabaseManager) Pool() *pgxpool.Pool {
	return dm.pool
}

func (dm *DatabaseManager) Name() string {
	return dm.dbName
}

func (dm *DatabaseManager) Close() {
	if dm.pool != nil {
		dm.pool.Close()
		dm.pool = nil
	}
}

func isCI() bool {
	return strings.TrimSpace(os.Getenv("CI")) != ""
}

const (
	// PostgreSQL database name maximum length is 63 characters
	maxDBNameLength = 63
	// 8 hex chars plus an underscore
	hashSuffixLength = 9
)

var dbNameReplacer = strings.NewReplacer(
	"/", "_", " ", "_", "-", "_", ".", "_",
	"(", "_", ")", "_", "[", "_", "]", "_",
	"#", "_", ":", "_", "'", "_", "\"", "_",
)

// sanitizeDBName maps a test name onto a valid, unquoted PostgreSQL identifier of at most
// 63 characters. Long names keep their leading segments and gain a hash of the original.
func sanitizeDBName(name string) string {
	sanitized := dbNameReplacer.Replace(strings.ToLower(name))
	sanitized = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, sanitized)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}
	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		sanitized = "test_db"
	}
	// Identifiers must not start with a digit.
	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "t_" + sanitized
	}

	if len(sanitized) <= maxDBNameLength {
		return sanitized
	}
	return truncateWithHash(sanitized, name)
}

func truncateWithHash(sanitized, original string) string {
	sum := sha256.Sum256([]byte(original))
	hash := fmt.Sprintf("%x", sum)[:8]
	truncated := strings.TrimRight(intelligentTruncate(sanitized, maxDBNameLength-hashSuffixLength), "_")
	return fmt.Sprintf("%s_%s", truncated, hash)
}

// intelligentTruncate keeps whole leading segments while they fit, falling back to a hard cut.
func intelligentTruncate(name string, maxLength int) string {
	if len(name) <= maxLength {
		return name
	}

	parts := strings.Split(name, "_")
	if len(parts) > 1 {
		first, last := parts[0], parts[len(parts)-1]
		if combined := first + "_" + last; len(combined) <= maxLength && first != last {
			return combined
		}

		if len(first) <= maxLength/2 {
			result := first
			remaining := maxLength - len(first)
			for _, part := range parts[1:] {
				if len(part)+1 <= remaining {
					result += "_" + part
					remaining -= len(part) + 1
					continue
				}
				if remaining > 4 {
					result += "_" + part[:remaining-1]
				}
				break
			}
			return result
		}
	}
	return name[:maxLength]
}

func adminConnString() string {
	c := configuration.Use()
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=postgres password=%s sslmode=disable connect_timeout=5",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
	)
}

func withAdminConn(ctx context.Context, fn func(conn *pgx.Conn) error) error {
	conn, err := pgx.Connect(ctx, adminConnString())
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(context.WithoutCancel(ctx)) }()
	return fn(conn)
}

// CreateDB drops and recreates name. name must already be sanitized.
func CreateDB(ctx context.Context, name string) error {
	ident := pgx.Identifier{name}.Sanitize()
	return withAdminConn(ctx, func(conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)"); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, "CREATE DATABASE "+ident)
		return err
	})
}

func DropDB(ctx context.Context, name string) error {
	ident := pgx.Identifier{name}.Sanitize()
	return withAdminConn(ctx, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "DROP DATABASE IF EXISTS "+ident+" WITH (FORCE)")
		return err
	})
}

func DbOpts(name string) string {
	c := configuration.Use()
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, sanitizeDBName(name), c.Database.Password,
	)
}

// SetupApplication loads mods into a fresh application bound to pool and applies their schemas.
func SetupApplication(ctx context.Context, pool *pgxpool.Pool, mods ...application.Module) (application.Application, error) {
	conf := configuration.Use()
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(conf.Logger()),
		Logger:   conf.Logger(),
	})
	if err := modules.Load(app, mods...); err != nil {
		return nil, err
	}
	if err := app.Migrations().Run(ctx); err != nil {
		return nil, err
	}
	return app, nil
}
