package app

import (
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/syllabus/internal/store"
	"github.com/shrimpsizemoose/syllabus/internal/store/postgres"
	"github.com/shrimpsizemoose/syllabus/internal/store/sqlite"
)

func NewStore(dsn string) (store.ReviewStore, error) {
	if store.DetectType(dsn) == store.DBTypePostgres {
		s, err := postgres.NewPostgresStore(dsn)
		if err != nil {
			return nil, err
		}
		logger.Info.Println("Using postgres store")
		return s, nil
	}

	s, err := sqlite.NewSQLiteStore(dsn)
	if err != nil {
		return nil, err
	}
	logger.Info.Printf("Using sqlite store at %s", dsn)
	return s, nil
}
