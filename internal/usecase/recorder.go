package usecase

import "github.com/oneentry/currency-sync/internal/domain"

// Recorder receives measurements from the rate and sync services
type Recorder interface {
	ObservePass(result domain.PassResult)
	ProductSkipped(reason string)
	ProductUpdated()
	ProductFailed()
	WriteStarted()
	WriteFinished()
	RateUpdated(rate float64)
	RateFetchFailed()
}

type nopRecorder struct{}

func (nopRecorder) ObservePass(domain.PassResult) {}
func (nopRecorder) ProductSkipped(string) {}
func (nopRecorder) ProductUpdated() {}
func (nopRecorder) ProductFailed() {}
func (nopRecorder) WriteStarted() {}
func (nopRecorder) WriteFinished() {}
func (nopRecorder) RateUpdated(float64) {}
func (nopRecorder) RateFetchFailed() {}
