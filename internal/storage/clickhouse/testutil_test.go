package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container, applies the schema, and
// returns a connection. Returns a cleanup function that must be called when
// done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	applySchema(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// applySchema creates the tables. Kept in sync with the embedded migration
// files; inlined here because the migrations package imports this one.
func applySchema(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS bars (
			ticker        String,
			bar_interval  String,
			timestamp     DateTime64(3, 'UTC'),
			open          Float64,
			high          Float64,
			low           Float64,
			close         Float64,
			volume        Int64
		) ENGINE = MergeTree()
		ORDER BY (ticker, bar_interval, timestamp)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS segment_stats (
			dimension            String,
			segment_key          String,
			phase                String,
			sample_count         UInt32,
			win_rate             Float64,
			mean_return          Float64,
			median_return        Float64,
			trimmed_mean_return  Float64,
			avg_win              Float64,
			avg_loss             Float64,
			expected_value       Float64,
			lower_quartile_avg   Float64,
			max_loss             Float64,
			total_pnl            Float64,
			no_data_count        UInt32,
			created_at           DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (dimension, segment_key, phase)
		SETTINGS index_granularity = 8192
	`)
	require.NoError(t, err)
}
