package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestNullString(t *testing.T) {
	if ns := NullString(nil); ns.Valid {
		t.Errorf("expected invalid NullString for nil, got %+v", ns)
	}
	s := "hello"
	if ns := NullString(&s); !ns.Valid || ns.String != "hello" {
		t.Errorf("expected valid NullString hello, got %+v", ns)
	}
}

func TestStringPtr(t *testing.T) {
	if p := StringPtr(sql.NullString{}); p != nil {
		t.Errorf("expected nil pointer for invalid NullString, got %v", p)
	}
	p := StringPtr(sql.NullString{String: "x", Valid: true})
	if p == nil || *p != "x" {
		t.Errorf("expected pointer to x, got %v", p)
	}
}

func TestNullTime(t *testing.T) {
	if nt := NullTime(nil); nt.Valid {
		t.Errorf("expected invalid NullTime for nil, got %+v", nt)
	}
	now := time.Now()
	if nt := NullTime(&now); !nt.Valid || !nt.Time.Equal(now) {
		t.Errorf("expected valid NullTime, got %+v", nt)
	}
}

func TestTimePtr(t *testing.T) {
	if p := TimePtr(sql.NullTime{}); p != nil {
		t.Errorf("expected nil pointer for invalid NullTime, got %v", p)
	}
	now := time.Now()
	p := TimePtr(sql.NullTime{Time: now, Valid: true})
	if p == nil || !p.Equal(now) {
		t.Errorf("expected pointer to now, got %v", p)
	}
}

func TestDB_Transaction_CommitsOnSuccess(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sqlDB.Close()
	db := &DB{DB: sqlDB}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = db.Transaction(context.Background(), func(tx *sql.Tx) error {
		_, execErr := tx.Exec("UPDATE foo SET bar = 1")
		return execErr
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDB_Transaction_RollsBackOnError(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sqlDB.Close()
	db := &DB{DB: sqlDB}

	mock.ExpectBegin()
	mock.ExpectRollback()

	wantErr := errors.New("boom")
	err = db.Transaction(context.Background(), func(tx *sql.Tx) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped boom error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestDB_Ping(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sqlDB.Close()
	db := &DB{DB: sqlDB}

	mock.ExpectPing()

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
