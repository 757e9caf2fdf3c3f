package ingestion

import (
	"sync"

	"golang.org/x/time/rate"
)

// ServiceLimiters is a registry of per-external-service leaky-bucket rate
// limiters (§5 "Shared resources"), keyed by service name (e.g.
// "sec_edgar", "meta_ad_library"), shared across all records of an adapter
// and safe for concurrent use across parallel adapter runs.
type ServiceLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewServiceLimiters() *ServiceLimiters {
	return &ServiceLimiters{limiters: make(map[string]*rate.Limiter)}
}

// Register installs a limiter of r events/sec with burst b for service,
// replacing any prior registration.
func (s *ServiceLimiters) Register(service string, r rate.Limit, burst int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiters[service] = rate.NewLimiter(r, burst)
}

// Get returns the limiter for service, or a no-op unlimited limiter if
// none was registered.
func (s *ServiceLimiters) Get(service string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[service]; ok {
		return l
	}
	return rate.NewLimiter(rate.Inf, 0)
}

// Default per-service limits named in §5: SEC EDGAR <=10 req/s, Meta Ad
// Library 200 req/hr app-wide.
func DefaultServiceLimiters() *ServiceLimiters {
	sl := NewServiceLimiters()
	sl.Register("sec_edgar", rate.Limit(10), 10)
	sl.Register("meta_ad_library", rate.Limit(200.0/3600.0), 5)
	return sl
}
