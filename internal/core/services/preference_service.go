package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sean-rowe/weather-tracker/internal/core/domain"
	"github.com/sean-rowe/weather-tracker/internal/core/ports"
)

type preferenceService struct {
	mu     sync.RWMutex
	units  domain.Units
	logger *zap.Logger
}

// NewPreferenceService keeps the unit preference in memory, starting from defaultUnits.
func NewPreferenceService(defaultUnits domain.Units, logger *zap.Logger) ports.PreferenceService {
	if defaultUnits != domain.Imperial {
		defaultUnits = domain.Metric
	}

	return &preferenceService{
		units:  defaultUnits,
		logger: logger,
	}
}

func (s *preferenceService) EffectiveUnits(_ context.Context) domain.Units {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.units
}

func (s *preferenceService) SetUnits(_ context.Context, units domain.Units) error {
	if units != domain.Metric && units != domain.Imperial {
		return domain.InvalidInput("units must be metric or imperial", nil)
	}

	s.mu.Lock()
	s.units = units
	s.mu.Unlock()

	s.logger.Info("unit preference changed", zap.String("units", string(units)))

	return nil
}
