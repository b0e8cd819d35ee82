package driven

import (
	"time"

	"github.com/custodia-labs/chronicle/internal/core/domain"
)

// PipelineMetrics records pipeline counters.
type PipelineMetrics interface {
	PageFetched(items int)
	RateLimited(wait time.Duration)
	ContainerSkipped(reason string)
	ItemArchived(category domain.Category)
	WriteFailed()
	RemoteClassified(category domain.Category, err error)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) PageFetched(int) {}
func (NopMetrics) RateLimited(time.Duration) {}
func (NopMetrics) ContainerSkipped(string) {}
func (NopMetrics) ItemArchived(domain.Category) {}
func (NopMetrics) WriteFailed() {}
func (NopMetrics) RemoteClassified(domain.Category, error) {}
