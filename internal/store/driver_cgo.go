//go:build cgo

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName is the database/sql driver used by Open. cgo builds use the
// C SQLite library.
const driverName = "sqlite3"
