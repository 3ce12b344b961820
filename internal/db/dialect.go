package db

import (
	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// DialectName returns the active database dialect name.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// DateBucketExpr returns a SQL expression that truncates a timestamp column
// to a YYYY-MM-DD date string for daily grouping.
func DateBucketExpr(conn *gorm.DB, column string) string {
	if IsSQLite(conn) {
		return "strftime('%Y-%m-%d', " + column + ")"
	}
	return "to_char(" + column + ", 'YYYY-MM-DD')"
}
