package service

import (
	"time"

	"github.com/tagwarden/server/internal/logger"
	"github.com/tagwarden/server/internal/metrics"
)

// options are shared by every service constructor.
type options struct {
	now     func() time.Time
	metrics *metrics.AccessMetrics
	log     *logger.Logger
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMetrics(m *metrics.AccessMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

func buildOptions(opts []Option) options {
	o := options{
		now: time.Now,
		log: logger.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
