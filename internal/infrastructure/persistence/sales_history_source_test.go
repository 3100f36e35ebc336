package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/salesops/backend/internal/domain/access"
	"github.com/salesops/backend/internal/domain/fiscal"
	"github.com/salesops/backend/internal/domain/report"
	"github.com/salesops/backend/internal/domain/shared"
	"github.com/salesops/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func seedSource(t *testing.T, db *gorm.DB, source report.SourceID, txns ...report.Transaction) {
	t.Helper()
	table := models.SalesHistoryTable(source)
	require.NoError(t, db.Table(table).AutoMigrate(&models.SalesHistoryModel{}))
	for _, txn := range txns {
		require.NoError(t, db.Table(table).Create(models.SalesHistoryModelFromTransaction(txn)).Error)
	}
}

func sale(owner, key string, date time.Time, amount int64) report.Transaction {
	return report.Transaction{
		Owner:          owner,
		ShipTo:         "S-" + key,
		Item:           "ITEM",
		Region:         "EAST",
		RecordKey:      key,
		Date:           date,
		ExtendedAmount: decimal.NewFromInt(amount),
		Quantity:       decimal.NewFromInt(1),
	}
}

func salesPlan(t *testing.T, p access.AccessPredicate, sources ...report.SourceID) report.QueryPlan {
	t.Helper()
	window := fiscal.NewCalendar(time.September).BuildWindow(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 1)
	plan, err := report.Build(p, window, sources, []report.MetricDef{
		report.Revenue(report.GroupOwner, report.GroupRecordKey),
		report.Quantity(report.GroupOwner, report.GroupRecordKey),
	})
	require.NoError(t, err)
	return plan
}

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestGormSalesDataSource_SQLite(t *testing.T) {
	db := setupSQLiteDB(t)
	seedSource(t, db, "current",
		sale("REPA", "A1", utcDay(2024, 10, 3), 100),
		sale("REPA", "A1", utcDay(2024, 10, 20), 25),
		sale("REPB", "B1", utcDay(2024, 11, 1), 70),
		sale("OTHER", "X1", utcDay(2025, 1, 10), 40),
		// outside the window on both ends
		sale("REPA", "A1", utcDay(2023, 8, 31), 999),
		sale("REPA", "A1", utcDay(2025, 2, 1), 999),
	)
	seedSource(t, db, "archive_2019",
		sale("REPA", "A1", utcDay(2024, 10, 15), 50),
		sale("REPA", "A2", utcDay(2023, 9, 1), 10),
	)
	ds := NewGormSalesDataSource(db)
	ctx := context.Background()

	t.Run("owner only unions sources before grouping", func(t *testing.T) {
		plan := salesPlan(t, access.NewPredicate(access.OwnerOnly("REPA")), "current", "archive_2019")
		rows, err := report.Execute(ctx, plan, ds)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		a1 := rows[0]
		assert.Equal(t, "A1", a1.Key(report.GroupRecordKey))
		requireDecimal(t, "175", a1.Value("revenue", "2024-10"))
		requireDecimal(t, "3", a1.Value("quantity", "2024-10"))
		requireDecimal(t, "0", a1.Value("revenue", "2024-09"))
		requireDecimal(t, "175", a1.YearTotal("revenue", 2025))

		a2 := rows[1]
		assert.Equal(t, "A2", a2.Key(report.GroupRecordKey))
		requireDecimal(t, "10", a2.Value("revenue", "2023-09"))
		requireDecimal(t, "10", a2.YearTotal("revenue", 2024))
	})

	t.Run("owner plus extra admits exception keys", func(t *testing.T) {
		plan := salesPlan(t, access.NewPredicate(access.OwnerPlusExtra("DAL", []string{"X1", "B1"})), "current")
		rows, err := report.Execute(ctx, plan, ds)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		// rows sort by owner then key
		assert.Equal(t, "X1", rows[0].Key(report.GroupRecordKey))
		assert.Equal(t, "B1", rows[1].Key(report.GroupRecordKey))
		requireDecimal(t, "40", rows[0].Value("revenue", "2025-01"))
	})

	t.Run("all owners", func(t *testing.T) {
		plan := salesPlan(t, access.NewPredicate(access.AllOwners()), "current")
		rows, err := report.Execute(ctx, plan, ds)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("no matching rows is an empty result", func(t *testing.T) {
		plan := salesPlan(t, access.NewPredicate(access.OwnerOnly("NOBODY")), "current", "archive_2019")
		rows, err := report.Execute(ctx, plan, ds)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("missing source table is a data source error", func(t *testing.T) {
		plan := salesPlan(t, access.NewPredicate(access.AllOwners()), "current", "archive_1999")
		rows, err := report.Execute(ctx, plan, ds)
		assert.Nil(t, rows)
		assert.ErrorIs(t, err, shared.ErrDataSourceFailure)
	})
}

func TestGormSalesDataSource_InvalidSourceID(t *testing.T) {
	ds := NewGormSalesDataSource(setupSQLiteDB(t))
	plan := salesPlan(t, access.NewPredicate(access.AllOwners()), "current")
	plan.Sources = []report.SourceID{"current; DROP TABLE x"}

	_, err := ds.Query(context.Background(), plan)
	assert.ErrorContains(t, err, "invalid source id")
}

func newPostgresMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock, mockDB
}

func TestGormSalesDataSource_PostgresSQL(t *testing.T) {
	t.Run("pivots a union of filtered branches", func(t *testing.T) {
		db, mock, mockDB := newPostgresMock(t)
		defer mockDB.Close()

		plan := salesPlan(t, access.NewPredicate(access.OwnerPlusExtra("DAL", []string{"X1"})), "current", "archive_2019")

		columns := []string{"owner", "record_key"}
		for _, m := range plan.Metrics {
			for _, l := range plan.Window.Labels() {
				columns = append(columns, report.MetricColumn(m.Name, l))
			}
		}
		values := []driver.Value{"OTHER", "X1"}
		for range columns[2:] {
			values = append(values, []byte("0"))
		}
		values[2+16] = []byte("40.5000") // revenue@2025-01

		mock.ExpectQuery(`SELECT u\.owner_code AS "owner", u\.record_key AS "record_key", ` +
			`COALESCE\(SUM\(CASE WHEN u\.period_label = \$1 THEN u\.extended_amount ELSE 0 END\), 0\) AS "revenue@2023-09".*` +
			`FROM \(SELECT owner_code, .*to_char\(txn_date, 'YYYY-MM'\) AS period_label FROM "sales_history_current" ` +
			`WHERE .*txn_date >= \$\d+ AND txn_date < \$\d+.*owner_code = \$\d+ OR record_key IN \(\$\d+\).* ` +
			`UNION ALL SELECT .* FROM "sales_history_archive_2019" .*\) AS u ` +
			`GROUP BY u\.owner_code, u\.record_key HAVING COUNT\(\*\) > 0 ORDER BY u\.owner_code, u\.record_key`).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(values...))

		rows, err := report.Execute(context.Background(), plan, NewGormSalesDataSource(db))
		require.NoError(t, err)
		require.Len(t, rows, 1)
		requireDecimal(t, "40.5", rows[0].Value("revenue", "2025-01"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure surfaces as a terminal data source error", func(t *testing.T) {
		db, mock, mockDB := newPostgresMock(t)
		defer mockDB.Close()

		boom := errors.New("connection reset")
		mock.ExpectQuery(`UNION ALL`).WillReturnError(boom)

		plan := salesPlan(t, access.NewPredicate(access.AllOwners()), "current", "archive_2019")
		rows, err := report.Execute(context.Background(), plan, NewGormSalesDataSource(db))
		assert.Nil(t, rows)
		assert.ErrorIs(t, err, boom)
		var dsErr *report.DataSourceError
		require.ErrorAs(t, err, &dsErr)
		assert.Equal(t, []report.SourceID{"current", "archive_2019"}, dsErr.Sources)
	})
}
