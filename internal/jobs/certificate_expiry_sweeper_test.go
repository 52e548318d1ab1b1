package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/outstaff/outstaff/internal/config"
	"github.com/outstaff/outstaff/internal/db/repositories"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var sweepCertCols = []string{
	"id", "user_id", "org_id", "type_id", "issue_date", "expiry_date", "attachment_url",
	"status", "verified_by", "notes", "created_at", "updated_at",
}

var sweepToday = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newSweeperForTest(t *testing.T, cfg *config.CertificateSweeperConfig) (*CertificateExpirySweeper, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	s := NewCertificateExpirySweeper(
		repositories.NewCertificateRepository(sqlxDB),
		repositories.NewAuditRepository(sqlxDB),
		cfg,
	)
	s.now = func() time.Time { return sweepToday }
	return s, mock
}

func sweepRow(rows *sqlmock.Rows, id, orgID int64, status, expiry string) *sqlmock.Rows {
	exp, _ := time.Parse("2006-01-02", expiry)
	return rows.AddRow(id, int64(7), orgID, int64(1), nil, exp, nil, status, nil, nil, sweepToday, sweepToday)
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewCertificateExpirySweeper_Defaults(t *testing.T) {
	s := NewCertificateExpirySweeper(nil, nil, &config.CertificateSweeperConfig{})
	if s.interval != 24*time.Hour {
		t.Errorf("interval = %v, want 24h", s.interval)
	}
	if s.window != 30*24*time.Hour {
		t.Errorf("window = %v, want 30 days", s.window)
	}
}

func TestNewCertificateExpirySweeper_Custom(t *testing.T) {
	s := NewCertificateExpirySweeper(nil, nil, &config.CertificateSweeperConfig{IntervalHours: 6, ExpiringWithinDays: 14})
	if s.interval != 6*time.Hour {
		t.Errorf("interval = %v, want 6h", s.interval)
	}
	if s.window != 14*24*time.Hour {
		t.Errorf("window = %v, want 14 days", s.window)
	}
}

// ---------------------------------------------------------------------------
// Sweep
// ---------------------------------------------------------------------------

func TestSweep_UpdatesStatusesAndRecordsOncePerOrg(t *testing.T) {
	s, mock := newSweeperForTest(t, &config.CertificateSweeperConfig{Enabled: true})

	rows := sqlmock.NewRows(sweepCertCols)
	sweepRow(rows, 1, 10, "valid", "2026-03-10")
	sweepRow(rows, 2, 10, "expiring", "2026-02-01")
	sweepRow(rows, 3, 20, "valid", "2026-02-20")
	sweepRow(rows, 4, 30, "expiring", "2026-03-20")
	mock.ExpectQuery("SELECT .+ FROM certificates").
		WithArgs("2026-04-01").
		WillReturnRows(rows)

	mock.ExpectExec("UPDATE certificates SET status").
		WithArgs(int64(1), "valid", "expiring", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE certificates SET status").
		WithArgs(int64(2), "expiring", "expired", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// changed concurrently by an admin
	mock.ExpectExec("UPDATE certificates SET status").
		WithArgs(int64(3), "valid", "expired", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectExec("INSERT INTO activity_logs").
		WithArgs(int64(10), nil, "Certificate expiry check updated 2 certificate(s)", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Expiring != 1 || res.Expired != 1 {
		t.Errorf("result = %+v, want 1 expiring and 1 expired", res)
	}
	if len(res.Orgs) != 1 || res.Orgs[0] != 10 {
		t.Errorf("orgs = %v, want [10]", res.Orgs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSweep_WriteFailureSkipsCertificate(t *testing.T) {
	s, mock := newSweeperForTest(t, &config.CertificateSweeperConfig{Enabled: true})

	rows := sqlmock.NewRows(sweepCertCols)
	sweepRow(rows, 1, 10, "valid", "2026-02-01")
	sweepRow(rows, 2, 20, "valid", "2026-02-01")
	mock.ExpectQuery("SELECT .+ FROM certificates").WillReturnRows(rows)
	mock.ExpectExec("UPDATE certificates SET status").
		WithArgs(int64(1), "valid", "expired", sqlmock.AnyArg()).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectExec("UPDATE certificates SET status").
		WithArgs(int64(2), "valid", "expired", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activity_logs").
		WithArgs(int64(20), nil, "Certificate expiry check updated 1 certificate(s)", sqlmock.AnyArg()).
		WillReturnError(errors.New("activity down"))

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Expired != 1 {
		t.Errorf("expired = %d, want 1", res.Expired)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSweep_ScanError(t *testing.T) {
	s, mock := newSweeperForTest(t, &config.CertificateSweeperConfig{Enabled: true})
	mock.ExpectQuery("SELECT .+ FROM certificates").WillReturnError(errors.New("connection refused"))

	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error from failed scan")
	}
}

func TestSweep_NothingToDo(t *testing.T) {
	s, mock := newSweeperForTest(t, &config.CertificateSweeperConfig{Enabled: true})
	mock.ExpectQuery("SELECT .+ FROM certificates").WillReturnRows(sqlmock.NewRows(sweepCertCols))

	res, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if res.Expiring+res.Expired != 0 || len(res.Orgs) != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestCertificateExpirySweeper_DisabledReturnsImmediately(t *testing.T) {
	s := NewCertificateExpirySweeper(nil, nil, &config.CertificateSweeperConfig{Enabled: false})

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return for a disabled sweeper")
	}
}

func TestCertificateExpirySweeper_StopEndsLoop(t *testing.T) {
	s, mock := newSweeperForTest(t, &config.CertificateSweeperConfig{Enabled: true, IntervalHours: 1})
	mock.ExpectQuery("SELECT .+ FROM certificates").WillReturnRows(sqlmock.NewRows(sweepCertCols))

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestCertificateExpirySweeper_StopTwice(t *testing.T) {
	s := NewCertificateExpirySweeper(nil, nil, &config.CertificateSweeperConfig{Enabled: true})
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("second Stop panicked: %v", r)
		}
	}()
	s.Stop()
	s.Stop()

	select {
	case <-s.stopChan:
	default:
		t.Error("stop channel not closed")
	}
}

func TestCertificateExpirySweeper_ContextCancelEndsLoop(t *testing.T) {
	s, mock := newSweeperForTest(t, &config.CertificateSweeperConfig{Enabled: true, IntervalHours: 1})
	mock.ExpectQuery("SELECT .+ FROM certificates").WillReturnError(errors.New("down"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancel")
	}
}
