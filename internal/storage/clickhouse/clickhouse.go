// Package clickhouse mirrors hourly volume rollups to ClickHouse for
// analytical queries that would be slow against the transactional store.
package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Conn wraps clickhouse driver.Conn for dependency injection.
type Conn struct {
	driver.Conn
}

// NewConn creates a new ClickHouse connection to the given database.
// An empty database connects at the server level, which is what the
// migration runner needs to create the database itself.
func NewConn(ctx context.Context, addr, database string) (*Conn, error) {
	opts := &clickhouse.Options{
		Protocol: clickhouse.Native,
		Addr:     []string{addr},
	}
	if database != "" {
		opts.Auth.Database = database
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open clickhouse connection: %w", err)
	}

	// Verify connection
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	return &Conn{Conn: conn}, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.Conn.Close()
}
