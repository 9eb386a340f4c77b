package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

type Config struct {
	FailThreshold    int           `json:"fail_threshold"`
	SuccessThreshold int           `json:"success_threshold"`
	Timeout          time.Duration `json:"timeout"`
	// OnStateChange, if set, is called after every transition with the lock released.
	OnStateChange func(from, to State) `json:"-"`
}

// Breaker stops sending requests after FailThreshold consecutive transport
// failures. After Timeout it lets requests through again (half-open) and
// closes once SuccessThreshold of them succeed. It never retries anything.
type Breaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	failThreshold    int
	successThreshold int
	timeout          time.Duration
	openedAt         time.Time
	onStateChange    func(from, to State)
	now              func() time.Time
	metrics          *Metrics
}

type Metrics struct {
	totalRequests    atomic.Int64
	rejectedRequests atomic.Int64
	successRequests  atomic.Int64
	failedRequests   atomic.Int64
	stateChanges     atomic.Int32
}

func New(config Config) *Breaker {
	return &Breaker{
		state:            StateClosed,
		failThreshold:    config.FailThreshold,
		successThreshold: config.SuccessThreshold,
		timeout:          config.Timeout,
		onStateChange:    config.OnStateChange,
		now:              time.Now,
		metrics:          &Metrics{},
	}
}

// Allow reports whether a request may be sent now.
func (b *Breaker) Allow() bool {
	b.metrics.totalRequests.Add(1)

	b.mu.Lock()
	from := b.state
	allowed := true
	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) >= b.timeout {
			b.enterLocked(StateHalfOpen)
		} else {
			allowed = false
		}
	}
	to := b.state
	b.mu.Unlock()

	if !allowed {
		b.metrics.rejectedRequests.Add(1)
	}
	b.notify(from, to)
	return allowed
}

// Record reports the outcome of a request that Allow let through.
func (b *Breaker) Record(success bool) {
	if success {
		b.metrics.successRequests.Add(1)
	} else {
		b.metrics.failedRequests.Add(1)
	}

	b.mu.Lock()
	from := b.state
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		b.enterLocked(StateHalfOpen)
	}

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
		} else {
			b.failures++
			if b.failures >= b.failThreshold {
				b.enterLocked(StateOpen)
			}
		}
	case StateHalfOpen:
		if success {
			b.successes++
			if b.successes >= b.successThreshold {
				b.enterLocked(StateClosed)
			}
		} else {
			b.enterLocked(StateOpen)
		}
	}
	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

func (b *Breaker) enterLocked(state State) {
	if b.state == state {
		return
	}
	b.state = state
	b.failures = 0
	b.successes = 0
	if state == StateOpen {
		b.openedAt = b.now()
	}
	b.metrics.stateChanges.Add(1)
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Reset() {
	b.mu.Lock()
	from := b.state
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.mu.Unlock()
	b.notify(from, StateClosed)
}

func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) Successes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.successes
}

func (b *Breaker) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:    b.metrics.totalRequests.Load(),
		RejectedRequests: b.metrics.rejectedRequests.Load(),
		SuccessRequests:  b.metrics.successRequests.Load(),
		FailedRequests:   b.metrics.failedRequests.Load(),
		StateChanges:     b.metrics.stateChanges.Load(),
		CurrentState:     b.State().String(),
	}
}

type MetricsSnapshot struct {
	TotalRequests    int64
	RejectedRequests int64
	SuccessRequests  int64
	FailedRequests   int64
	StateChanges     int32
	CurrentState     string
}
