package orgauth

import "sync/atomic"

// MetricID identifies one in-memory counter.
type MetricID uint16

const (
	// MetricSignInSuccess counts completed password sign-ins.
	MetricSignInSuccess MetricID = iota
	// MetricSignInInvalidCredentials counts wrong email/password pairs.
	MetricSignInInvalidCredentials
	// MetricSignInInactive counts sign-ins rejected for a deactivated account.
	MetricSignInInactive
	// MetricSignInFirstLogin counts sign-ins landing in the first-login state.
	MetricSignInFirstLogin
	// MetricCodeRequested counts accepted one-time-code requests.
	MetricCodeRequested
	// MetricCodeRateLimited counts quota-exceeded code requests.
	MetricCodeRateLimited
	// MetricCodeRejected counts code requests refused before the quota check
	// (unknown or inactive account).
	MetricCodeRejected
	// MetricCodeVerifySuccess counts successful code verifications.
	MetricCodeVerifySuccess
	// MetricCodeVerifyFailure counts failed code verifications.
	MetricCodeVerifyFailure
	// MetricPasswordUpdateSuccess counts completed password updates.
	MetricPasswordUpdateSuccess
	// MetricPasswordUpdateFailure counts failed password updates.
	MetricPasswordUpdateFailure
	// MetricSignOut counts sign-outs, voluntary or forced.
	MetricSignOut
	// MetricSessionResumed counts sessions recovered on process start.
	MetricSessionResumed
	// MetricSessionRevoked counts sessions invalidated after a deactivation check.
	MetricSessionRevoked
	// MetricTransportFailure counts remote calls that failed or timed out.
	MetricTransportFailure
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of atomically updated counters. A disabled Metrics is
// inert; every method is safe on a nil receiver.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a Metrics set per cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value reads one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}

// MetricName returns a short stable name for id, suitable for logs and
// snapshot dumps.
func MetricName(id MetricID) string {
	switch id {
	case MetricSignInSuccess:
		return "signin_success"
	case MetricSignInInvalidCredentials:
		return "signin_invalid_credentials"
	case MetricSignInInactive:
		return "signin_account_inactive"
	case MetricSignInFirstLogin:
		return "signin_first_login"
	case MetricCodeRequested:
		return "code_requested"
	case MetricCodeRateLimited:
		return "code_rate_limited"
	case MetricCodeRejected:
		return "code_rejected"
	case MetricCodeVerifySuccess:
		return "code_verify_success"
	case MetricCodeVerifyFailure:
		return "code_verify_failure"
	case MetricPasswordUpdateSuccess:
		return "password_update_success"
	case MetricPasswordUpdateFailure:
		return "password_update_failure"
	case MetricSignOut:
		return "signout"
	case MetricSessionResumed:
		return "session_resumed"
	case MetricSessionRevoked:
		return "session_revoked"
	case MetricTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// MetricIDs returns every defined MetricID in order.
func MetricIDs() []MetricID {
	ids := make([]MetricID, 0, int(metricIDCount))
	for id := MetricID(0); id < metricIDCount; id++ {
		ids = append(ids, id)
	}
	return ids
}
