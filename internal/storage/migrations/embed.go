package migrations

import "embed"

// PostgresFS holds the signature-log and transaction-cache schema files,
// applied in lexical order at startup.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the audit-log schema files.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
