package migrations

import "embed"

// PostgresFS embeds the entry and trade table migrations.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS embeds the bar and segment summary table migrations.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
