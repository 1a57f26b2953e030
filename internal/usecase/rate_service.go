package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/shopspring/decimal"
)

// RateServiceConfig holds configuration for the rate service
type RateServiceConfig struct {
	BaseCurrency string
	SyncCurrency string
	MaxAttempts  int
}

// RateService derives the conversion factor from the provider's rate table
type RateService struct {
	provider    domain.RateProvider
	base        string
	sync        string
	maxAttempts int
	logger      *slog.Logger
	recorder    Recorder
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewRateService creates a new rate service
func NewRateService(provider domain.RateProvider, config RateServiceConfig, logger *slog.Logger, recorder Recorder) *RateService {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &RateService{
		provider:    provider,
		base:        config.BaseCurrency,
		sync:        config.SyncCurrency,
		maxAttempts: maxAttempts,
		logger:      logger,
		recorder:    recorder,
		sleep:       sleepContext,
	}
}

// FetchRate returns rates[base] * rates[sync] from the latest rate table.
// Failed attempts are retried with exponential backoff up to the configured limit.
func (s *RateService) FetchRate(ctx context.Context) (decimal.Decimal, error) {
	s.logger.Info("updating rates", "base", s.base, "sync", s.sync)

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		rate, err := s.fetchOnce(ctx)
		if err == nil {
			s.recorder.RateUpdated(rate.InexactFloat64())
			s.logger.Info("exchange rate updated", "rate", rate.String())
			return rate, nil
		}

		lastErr = err
		s.recorder.RateFetchFailed()
		if ctx.Err() != nil {
			return decimal.Zero, err
		}

		if attempt < s.maxAttempts {
			backoff := exponentialBackoff(attempt)
			s.logger.Warn("rate fetch failed, retrying",
				"attempt", attempt,
				"backoff", backoff,
				"error", err,
			)
			if err := s.sleep(ctx, backoff); err != nil {
				return decimal.Zero, err
			}
		}
	}

	return decimal.Zero, lastErr
}

func (s *RateService) fetchOnce(ctx context.Context) (decimal.Decimal, error) {
	resp, err := s.provider.LatestRates(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if resp == nil || len(resp.Rates) == 0 {
		return decimal.Zero, domain.ErrRatesUnavailable
	}

	baseRate, ok := resp.Rates[s.base]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrCurrencyNotFound, s.base)
	}
	syncRate, ok := resp.Rates[s.sync]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrCurrencyNotFound, s.sync)
	}

	return baseRate.Mul(syncRate), nil
}

// exponentialBackoff returns 500ms, 1s, 2s, ... for attempt 1, 2, 3, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 8 {
		attempt = 8
	}
	return 500 * time.Millisecond << (attempt - 1)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
