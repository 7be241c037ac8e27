package repos

import (
	"database/sql"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/jackc/pgx/v5"
)

type (
	// Scanner abstracts pgx row scanning.
	Scanner interface {
		ScanAll(dst any, rows pgx.Rows) error
		ScanOne(dst any, rows pgx.Rows) error
		IsNotFound(err error) bool
	}

	// SQLScanner abstracts database/sql row scanning.
	SQLScanner interface {
		ScanAll(dst any, rows *sql.Rows) error
		ScanOne(dst any, rows *sql.Rows) error
		IsNotFound(err error) bool
	}

	PgxScanner struct{}

	StdScanner struct{}
)

func NewPgxScanner() *PgxScanner {
	return &PgxScanner{}
}

func (s *PgxScanner) ScanAll(dst any, rows pgx.Rows) error {
	return pgxscan.ScanAll(dst, rows)
}

func (s *PgxScanner) ScanOne(dst any, rows pgx.Rows) error {
	return pgxscan.ScanOne(dst, rows)
}

func (s *PgxScanner) IsNotFound(err error) bool {
	return pgxscan.NotFound(err)
}

func NewStdScanner() *StdScanner {
	return &StdScanner{}
}

func (s *StdScanner) ScanAll(dst any, rows *sql.Rows) error {
	return sqlscan.ScanAll(dst, rows)
}

func (s *StdScanner) ScanOne(dst any, rows *sql.Rows) error {
	return sqlscan.ScanOne(dst, rows)
}

func (s *StdScanner) IsNotFound(err error) bool {
	return sqlscan.NotFound(err)
}
