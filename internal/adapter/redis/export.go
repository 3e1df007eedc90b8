// Package redis exports the realtime toponym-resolution table.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

// Exporter replaces the surface form to geoname id hash on every realtime
// update, so the lightweight realtime tagger can resolve toponyms with one
// HGET.
type Exporter struct {
	client *goredis.Client
	key    string
	logger *slog.Logger
}

// NewExporter connects to Redis and verifies it is reachable.
func NewExporter(ctx context.Context, addr, password, key string, logger *slog.Logger) (*Exporter, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &Exporter{client: client, key: key, logger: logger}, nil
}

// ExportResolutionTable atomically replaces the table: the old hash is
// deleted and the new mapping written in one transaction, so readers never
// observe a partial table.
func (e *Exporter) ExportResolutionTable(ctx context.Context, table map[string]int64) error {
	pipe := e.client.TxPipeline()
	pipe.Del(ctx, e.key)
	if len(table) > 0 {
		fields := make(map[string]string, len(table))
		for toponym, geonameID := range table {
			fields[toponym] = strconv.FormatInt(geonameID, 10)
		}
		pipe.HSet(ctx, e.key, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("export resolution table: %w", err)
	}
	e.logger.Debug("exported toponym resolution table", "entries", len(table))
	return nil
}

// Close releases the Redis connection.
func (e *Exporter) Close() error {
	return e.client.Close()
}
