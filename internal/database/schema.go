package database

// schema.go creates the application tables at startup.  Every statement is
// an idempotent CREATE TABLE IF NOT EXISTS so the bootstrap can run on every
// boot against an empty or an existing database.  Only the users table is
// read and written by the account flows; shops, sales and products are
// declared for the storefront that shares this database.

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// users.id is NOT auto-increment: account numbers are random six-digit
// values allocated by the repository so they do not reveal signup order.
var schemaStatements = []struct {
	table string
	ddl   string
}{
	{"users", `
        CREATE TABLE IF NOT EXISTS users (
            id              BIGINT UNSIGNED PRIMARY KEY,
            name            VARCHAR(255) NOT NULL,
            email           VARCHAR(255) NOT NULL UNIQUE,
            password_hash   VARCHAR(255) NOT NULL,
            state           ENUM('UNCONFIRMED','CONFIRMED') NOT NULL DEFAULT 'UNCONFIRMED',
            activation_code CHAR(5) NULL,
            code_issued_at  DATETIME NULL,
            shop_id         BIGINT UNSIGNED NOT NULL DEFAULT 0,
            created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`},
	{"shops", `
        CREATE TABLE IF NOT EXISTS shops (
            id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            name       VARCHAR(255) NOT NULL,
            balance    INT NOT NULL DEFAULT 0,
            pending    INT NOT NULL DEFAULT 0,
            status     VARCHAR(32) NOT NULL DEFAULT 'offline',
            region     VARCHAR(255) NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`},
	{"sales", `
        CREATE TABLE IF NOT EXISTS sales (
            id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            shop_name     VARCHAR(255) NOT NULL,
            product_code  VARCHAR(64) NOT NULL,
            delivery_fee  INT NOT NULL DEFAULT 0,
            total         INT NOT NULL DEFAULT 0,
            status        VARCHAR(32) NOT NULL DEFAULT 'UNCONFIRMED',
            region        VARCHAR(255) NOT NULL,
            created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`},
	{"products", `
        CREATE TABLE IF NOT EXISTS products (
            id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
            shop_name   VARCHAR(255) NOT NULL,
            name        VARCHAR(255) NOT NULL,
            price       INT NOT NULL,
            description TEXT NOT NULL,
            status      VARCHAR(32) NOT NULL DEFAULT 'AVAILABLE',
            stock       INT NOT NULL DEFAULT 0,
            created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`},
}

// Bootstrap creates all tables, stopping at the first failure.  Callers
// should treat an error as fatal: the service cannot run without its schema.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, s := range schemaStatements {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", s.table, err)
		}
		log.Printf("table %s ready", s.table)
	}
	return nil
}
