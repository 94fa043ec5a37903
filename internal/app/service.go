package app

import (
	"fmt"
	"time"

	"github.com/shrimpsizemoose/syllabus/internal/store"
)

type Service struct {
	Config   *Config
	Store    store.ReviewStore
	Throttle *Throttle

	now func() time.Time
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	throttle, err := NewThrottle(config)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to init throttle: %w", err)
	}

	return New(config, store, throttle), nil
}

// New wires a service from already constructed parts.
func New(config *Config, store store.ReviewStore, throttle *Throttle) *Service {
	if throttle == nil {
		throttle = &Throttle{}
	}
	return &Service{
		Config:   config,
		Store:    store,
		Throttle: throttle,
		now:      time.Now,
	}
}

func (s *Service) purgeInactive() bool {
	return s.Config.Reviews.Retention == RetentionPurge
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Throttle.Close(); err != nil {
		errs = append(errs, fmt.Errorf("throttle: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
