// Package database opens the MySQL pool used by the mysql credential
// backend and owns its schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and pings within ctx. Times are parsed as UTC.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = user
	mc.Passwd = pass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, port)
	mc.DBName = name
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mysql config: %w", err)
	}
	db := sql.OpenDB(connector)

	// Credential reads happen once per backend call; a small pool is enough.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql %s: %w", mc.Addr, err)
	}
	return db, nil
}

// credentialSchema holds one row per (scope, name). scope is a session id,
// name is one of the two credential keys.
const credentialSchema = `CREATE TABLE IF NOT EXISTS credential_entries (
	scope      VARCHAR(64)  NOT NULL,
	name       VARCHAR(64)  NOT NULL,
	value      TEXT         NOT NULL,
	updated_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
	PRIMARY KEY (scope, name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the credential table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, credentialSchema); err != nil {
		return fmt.Errorf("create credential_entries: %w", err)
	}
	return nil
}
