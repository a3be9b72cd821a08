//go:build !cgo

package store

import (
	_ "modernc.org/sqlite"
)

// driverName is the database/sql driver used by Open. Builds without cgo
// use the pure Go SQLite port.
const driverName = "sqlite"
