package stream

import (
	"context"

	"github.com/pedrosanzmtz/qf/internal/ratelimit"
	"github.com/pedrosanzmtz/qf/internal/value"
)

// Throttle wraps a source so records are delivered at most
// recordsPerSecond, for replaying event streams at a bounded rate.
// Zero or negative rates return the source unchanged.
func Throttle(ctx context.Context, src Source, recordsPerSecond float64) Source {
	if recordsPerSecond <= 0 {
		return src
	}
	return &throttledSource{
		ctx:     ctx,
		src:     src,
		limiter: ratelimit.New(recordsPerSecond),
	}
}

type throttledSource struct {
	ctx     context.Context
	src     Source
	limiter *ratelimit.Limiter
}

func (s *throttledSource) Next() (value.Value, error) {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return nil, err
	}
	return s.src.Next()
}
