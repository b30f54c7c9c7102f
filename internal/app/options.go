package service

import (
	"github.com/okian/wfmsim/internal/domain/model"
	"github.com/okian/wfmsim/pkg/logger"
)

// Progress receives work unit completion updates. *progressbar.ProgressBar
// satisfies it.
type Progress interface {
	ChangeMax(max int)
	Add(n int) error
	Finish() error
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithChannels sets the channel lookup table.
func WithChannels(t *model.ChannelTable) Option {
	return func(s *Service) {
		if t != nil {
			s.channels = t
		}
	}
}

// WithScenarios sets the scenarios to simulate.
func WithScenarios(set model.ScenarioSet) Option {
	return func(s *Service) {
		if len(set) > 0 {
			s.scenarios = set
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the work unit queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithCacheSize bounds each worker's Erlang C cache. Zero disables caching.
func WithCacheSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.cacheSize = size
		}
	}
}

// WithMaxAgents caps the real-time agent search. Zero removes the cap.
func WithMaxAgents(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxAgents = n
		}
	}
}

// WithHorizonDays sets the forecast horizon.
func WithHorizonDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.horizonDays = days
		}
	}
}

// WithIntervalMinutes sets the run granularity.
func WithIntervalMinutes(minutes int) Option {
	return func(s *Service) {
		if model.IsAllowedInterval(minutes) {
			s.intervalMinutes = minutes
		}
	}
}

// WithHoldoutDays sets the accuracy holdout window.
func WithHoldoutDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.holdoutDays = days
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(s *Service) {
		s.runID = id
	}
}

// WithProgress reports work unit completion.
func WithProgress(p Progress) Option {
	return func(s *Service) {
		s.progress = p
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
