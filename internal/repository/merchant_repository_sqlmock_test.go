package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock failed: %v", err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open gorm over sqlmock failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db, mock
}

func TestMerchantRepositoryPropagatesStorageErrors(t *testing.T) {
	db, mock := setupMockPostgres(t)
	repo := NewMerchantRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "merchants"`).WillReturnError(errors.New("connection refused"))

	merchant, err := repo.GetByAPIKey("mk_down")
	if err == nil {
		t.Fatalf("expected storage error, got merchant %+v", merchant)
	}
	if merchant != nil {
		t.Fatalf("expected nil merchant on error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMerchantRepositoryMissingKeyIsNil(t *testing.T) {
	db, mock := setupMockPostgres(t)
	repo := NewMerchantRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "merchants"`).WillReturnRows(sqlmock.NewRows([]string{"id", "name", "api_key"}))

	merchant, err := repo.GetByAPIKey("mk_unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merchant != nil {
		t.Fatalf("expected nil merchant, got %+v", merchant)
	}

	// 空 key 不访问数据库
	if merchant, err := repo.GetByAPIKey("  "); err != nil || merchant != nil {
		t.Fatalf("blank key should short-circuit: %+v %v", merchant, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
