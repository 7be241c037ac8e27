package repos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/device-inventory/internal/domain/model"
	"github.com/architeacher/device-inventory/internal/ports"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/mattn/go-sqlite3"
)

// Fixed width so that text ordering matches chronological ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

var sqlb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

type (
	// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
	sqlQuerier interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	}

	// SQLiteDevicesRepository stores devices in a single SQLite file. Transactions
	// begin immediately, which takes the database write lock up front.
	SQLiteDevicesRepository struct {
		db         *sql.DB
		q          sqlQuerier
		scanner    SQLScanner
		translator *CriteriaTranslator
		logger     logger.Logger
		inTx       bool
	}

	sqliteDeviceRow struct {
		ID           string `db:"id"`
		Name         string `db:"name"`
		Brand        string `db:"brand"`
		State        string `db:"state"`
		CreationTime string `db:"creation_time"`
	}
)

func NewSQLiteDevicesRepository(
	db *sql.DB,
	scanner SQLScanner,
	translator *CriteriaTranslator,
	log logger.Logger,
) *SQLiteDevicesRepository {
	return &SQLiteDevicesRepository{
		db:         db,
		q:          db,
		scanner:    scanner,
		translator: translator,
		logger:     log,
	}
}

func (r *SQLiteDevicesRepository) EnsureSchema(ctx context.Context) error {
	for _, statement := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("%w: ensuring schema: %v", model.ErrDatabaseQuery, err)
		}
	}

	return nil
}

func (r *SQLiteDevicesRepository) Create(ctx context.Context, device *model.Device) error {
	query, args, err := sqlb.Insert(devicesTable).
		Columns(deviceColumns...).
		Values(
			device.ID.String(),
			device.Name,
			device.Brand,
			device.State.String(),
			device.CreationTime.UTC().Format(sqliteTimeLayout),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err = r.q.ExecContext(ctx, query, args...); err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return model.ErrDuplicateDevice
		}

		return fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	return nil
}

func (r *SQLiteDevicesRepository) FetchByID(ctx context.Context, id model.DeviceID) (*model.Device, error) {
	query, args, err := sqlb.Select(deviceColumns...).
		From(devicesTable).
		Where(sq.Eq{"id": id.String()}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var row sqliteDeviceRow
	if err := r.scanner.ScanOne(&row, rows); err != nil {
		if r.scanner.IsNotFound(err) {
			return nil, model.ErrDeviceNotFound
		}

		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	device, err := row.toDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	return device, nil
}

func (r *SQLiteDevicesRepository) List(ctx context.Context, filter model.DeviceFilter) ([]*model.Device, error) {
	builder, err := r.translator.ApplyToSelect(
		sqlb.Select(deviceColumns...).From(devicesTable),
		model.FromDeviceFilter(filter),
	)
	if err != nil {
		return nil, err
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}
	defer rows.Close()

	var sqliteRows []sqliteDeviceRow
	if err := r.scanner.ScanAll(&sqliteRows, rows); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	devices := make([]*model.Device, 0, len(sqliteRows))
	for index := range sqliteRows {
		device, err := sqliteRows[index].toDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
		}

		devices = append(devices, device)
	}

	return devices, nil
}

func (r *SQLiteDevicesRepository) Update(ctx context.Context, device *model.Device) error {
	query, args, err := sqlb.Update(devicesTable).
		Set("name", device.Name).
		Set("brand", device.Brand).
		Set("state", device.State.String()).
		Where(sq.Eq{"id": device.ID.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	return r.execAffectingOne(ctx, query, args)
}

func (r *SQLiteDevicesRepository) Delete(ctx context.Context, id model.DeviceID) error {
	query, args, err := sqlb.Delete(devicesTable).
		Where(sq.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	return r.execAffectingOne(ctx, query, args)
}

func (r *SQLiteDevicesRepository) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx ports.DeviceRepository) error,
) error {
	if r.inTx {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", model.ErrDatabaseQuery, err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.rollback(tx)

			panic(p)
		}
	}()

	txRepo := &SQLiteDevicesRepository{
		db:         r.db,
		q:          tx,
		scanner:    r.scanner,
		translator: r.translator,
		logger:     r.logger,
		inTx:       true,
	}

	if err := fn(ctx, txRepo); err != nil {
		r.rollback(tx)

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing transaction: %v", model.ErrDatabaseQuery, err)
	}

	return nil
}

func (r *SQLiteDevicesRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", model.ErrDatabaseConnection, err)
	}

	return nil
}

func (r *SQLiteDevicesRepository) execAffectingOne(ctx context.Context, query string, args []any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDatabaseQuery, err)
	}

	if affected == 0 {
		return model.ErrDeviceNotFound
	}

	return nil
}

func (r *SQLiteDevicesRepository) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.Error().Err(err).Msg("failed to roll back transaction")
	}
}

func (row sqliteDeviceRow) toDevice() (*model.Device, error) {
	creationTime, err := time.Parse(sqliteTimeLayout, row.CreationTime)
	if err != nil {
		return nil, fmt.Errorf("failed to parse creation time: %w", err)
	}

	return convertRowToDevice(deviceRow{
		ID:           row.ID,
		Name:         row.Name,
		Brand:        row.Brand,
		State:        row.State,
		CreationTime: creationTime,
	})
}
