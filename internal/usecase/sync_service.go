package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RateSource yields the conversion factor for the next pass
type RateSource interface {
	FetchRate(ctx context.Context) (decimal.Decimal, error)
}

// SyncState is the lifecycle state reported by Status
type SyncState string

const (
	StateStarting SyncState = "starting"
	StateSyncing  SyncState = "syncing"
	StateIdle     SyncState = "idle"
	StateStopped  SyncState = "stopped"
	StateFailed   SyncState = "failed"
)

// SyncConfig holds configuration for the sync service
type SyncConfig struct {
	BaseLocale           string
	SyncLocale           string
	AttributeSetMarker   string
	PriceAttributeMarker string
	PageSize             int
	Concurrency          int
	UpdateEvery          time.Duration
	AbortOnWriteError    bool
}

// Status is a snapshot of the sync loop
type Status struct {
	State      SyncState           `json:"state"`
	Target     *domain.PriceTarget `json:"target,omitempty"`
	Rate       string              `json:"rate,omitempty"`
	Passes     int                 `json:"passes"`
	LastPass   *domain.PassResult  `json:"lastPass,omitempty"`
	NextPassAt *time.Time          `json:"nextPassAt,omitempty"`
	LastError  string              `json:"lastError,omitempty"`
}

// SyncService walks the product catalog and writes converted prices
// into the sync locale.
type SyncService struct {
	catalog  domain.CatalogClient
	rates    RateSource
	config   SyncConfig
	logger   *slog.Logger
	recorder Recorder

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	status Status
}

// NewSyncService creates a new sync service with dependencies
func NewSyncService(
	catalog domain.CatalogClient,
	rates RateSource,
	config SyncConfig,
	logger *slog.Logger,
	recorder Recorder,
) *SyncService {
	if config.PageSize <= 0 {
		config.PageSize = 30
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 8
	}
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	return &SyncService{
		catalog:  catalog,
		rates:    rates,
		config:   config,
		logger:   logger,
		recorder: recorder,
		sleep:    sleepContext,
		now:      time.Now,
		newID:    uuid.NewString,
		status:   Status{State: StateStarting},
	}
}

// Run resolves the price target, then syncs the catalog forever with a pause
// between passes. It returns only on a fatal error or when ctx is done.
func (s *SyncService) Run(ctx context.Context) (err error) {
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.status.NextPassAt = nil
		if err != nil && !errors.Is(err, context.Canceled) {
			s.status.State = StateFailed
			s.status.LastError = err.Error()
		} else {
			s.status.State = StateStopped
		}
	}()

	target, err := s.ResolveTarget(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.status.Target = &target
	s.mu.Unlock()

	rate, err := s.rates.FetchRate(ctx)
	if err != nil {
		return fmt.Errorf("fetch rate: %w", err)
	}

	for {
		result, err := s.RunPass(ctx, target, rate)
		if err != nil {
			return err
		}
		s.logger.Info(fmt.Sprintf("%d products updated", result.Updated),
			"pass_id", result.ID,
			"updated", result.Updated,
			"failed", result.Failed,
			"skipped", result.Skipped,
			"total", result.Total,
			"duration", result.Duration(),
		)

		next := s.now().Add(s.config.UpdateEvery)
		s.mu.Lock()
		s.status.State = StateIdle
		s.status.NextPassAt = &next
		s.mu.Unlock()

		if err := s.sleep(ctx, s.config.UpdateEvery); err != nil {
			return err
		}

		if rate, err = s.rates.FetchRate(ctx); err != nil {
			return fmt.Errorf("fetch rate: %w", err)
		}
	}
}

// ResolveTarget looks up the attribute set and the internal id of its price attribute
func (s *SyncService) ResolveTarget(ctx context.Context) (domain.PriceTarget, error) {
	set, err := s.catalog.GetAttributeSet(ctx, s.config.AttributeSetMarker)
	if err != nil {
		return domain.PriceTarget{}, err
	}

	attr, ok := set.FindAttribute(s.config.PriceAttributeMarker)
	if !ok {
		return domain.PriceTarget{}, fmt.Errorf("%w: %q in attribute set %q",
			domain.ErrAttributeNotFound, s.config.PriceAttributeMarker, s.config.AttributeSetMarker)
	}

	target := domain.PriceTarget{AttributeSetID: set.ID, AttributeID: attr.InternalID()}
	s.logger.Info("price attribute resolved",
		"attribute_set_id", target.AttributeSetID,
		"attribute_id", target.AttributeID,
	)
	return target, nil
}

// RunPass walks every catalog page once with the given rate and waits for
// all scheduled writes. Writes run concurrently, at most Concurrency at a time;
// scheduling blocks while the limit is reached.
func (s *SyncService) RunPass(ctx context.Context, target domain.PriceTarget, rate decimal.Decimal) (domain.PassResult, error) {
	result := domain.PassResult{
		ID:        s.newID(),
		Rate:      rate,
		StartedAt: s.now(),
	}
	logger := s.logger.With("pass_id", result.ID)

	s.mu.Lock()
	s.status.State = StateSyncing
	s.status.Rate = rate.String()
	s.status.NextPassAt = nil
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	var updated, failed atomic.Int64
	seen := make(map[int64]struct{})

	scanErr := func() error {
		for offset := 0; ; offset += s.config.PageSize {
			if offset > result.Total && result.Pages > 0 {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}

			page, err := s.catalog.ListProducts(gctx, s.config.BaseLocale, s.config.PageSize, offset)
			if err != nil {
				return err
			}
			result.Pages++
			result.Total = page.Total

			for i := range page.Items {
				product := &page.Items[i]
				result.Scanned++

				plan, reason := PlanPriceUpdate(product, target, rate, s.config.BaseLocale, s.config.SyncLocale)
				if reason == "" {
					if _, dup := seen[product.ID]; dup {
						reason = SkipDuplicate
					}
				}
				if reason != "" {
					result.Skipped++
					s.recorder.ProductSkipped(reason)
					if reason == SkipInvalidValue {
						logger.Warn("skipping product with unparseable price",
							"product_id", product.ID,
							"value", product.AttributesSets[s.config.BaseLocale][target.AttributeID],
						)
					}
					continue
				}

				seen[product.ID] = struct{}{}
				result.Scheduled++
				logger.Debug("new price", "product_id", plan.ProductID, "price", plan.Price)

				g.Go(func() error {
					if gctx.Err() != nil {
						return nil
					}
					s.recorder.WriteStarted()
					defer s.recorder.WriteFinished()

					if err := s.catalog.UpdateProduct(gctx, plan.ProductID, plan.Update); err != nil {
						// cancelled by shutdown or by an aborting sibling, not rejected
						if gctx.Err() != nil && isCancellation(err) {
							logger.Debug("product update cancelled", "product_id", plan.ProductID)
							return nil
						}
						failed.Add(1)
						s.recorder.ProductFailed()
						logger.Error("failed to update product",
							"product_id", plan.ProductID,
							"error", err,
						)
						if s.config.AbortOnWriteError {
							return err
						}
						return nil
					}
					updated.Add(1)
					s.recorder.ProductUpdated()
					return nil
				})
			}
		}
	}()

	waitErr := g.Wait()

	result.Updated = int(updated.Load())
	result.Failed = int(failed.Load())
	result.FinishedAt = s.now()
	s.recorder.ObservePass(result)

	s.mu.Lock()
	s.status.Passes++
	s.status.LastPass = &result
	s.mu.Unlock()

	switch {
	case waitErr != nil:
		return result, fmt.Errorf("pass aborted by failed write: %w", waitErr)
	case scanErr != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, fmt.Errorf("list products: %w", scanErr)
	}
	return result, ctx.Err()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Status returns a snapshot of the sync loop
func (s *SyncService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	if s.status.LastPass != nil {
		last := *s.status.LastPass
		status.LastPass = &last
	}
	return status
}
