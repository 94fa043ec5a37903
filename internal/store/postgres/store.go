package postgres

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/shrimpsizemoose/syllabus/internal/store"
)

const uniqueViolationCode = "23505"

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PostgresStore{BaseStore: store.BaseStore{
		DB:        db,
		Converter: db.Rebind,
		Contains: func(column string) string {
			return "strpos(" + column + ", ?) > 0"
		},
		IsUniqueViolation: isUniqueViolation,
	}}, nil
}

func (s *PostgresStore) ApplyMigrations(fsys fs.FS) error {
	return s.BaseStore.ApplyMigrations(fsys, nil)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
