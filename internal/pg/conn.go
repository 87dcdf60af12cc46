package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
)

// Pool: настройки пула database/sql
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	PingTimeout time.Duration
}

func DefaultPool() Pool {
	return Pool{MaxOpen: 10, MaxIdle: 5, MaxLifetime: 30 * time.Minute, PingTimeout: 5 * time.Second}
}

// Open подключается через pgx и ждёт ответа базы не дольше PingTimeout.
// Нулевые поля pool берутся из DefaultPool.
func Open(ctx context.Context, url string, pool Pool) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("pg: empty database url")
	}
	def := DefaultPool()
	if pool.MaxOpen <= 0 {
		pool.MaxOpen = def.MaxOpen
	}
	if pool.MaxIdle <= 0 || pool.MaxIdle > pool.MaxOpen {
		pool.MaxIdle = min(def.MaxIdle, pool.MaxOpen)
	}
	if pool.MaxLifetime <= 0 {
		pool.MaxLifetime = def.MaxLifetime
	}
	if pool.PingTimeout <= 0 {
		pool.PingTimeout = def.PingTimeout
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("pg: open: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pool.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return db, nil
}
