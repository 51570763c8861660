package orgauth

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// Builder assembles a [Machine]. Construction is allocation-only; no I/O
// happens before the first transition.
type Builder struct {
	config Config
	redis  *redis.Client

	gateway   CredentialGateway
	sender    OtcSender
	records   RecordStore
	auditSink AuditSink

	built bool
}

// New creates a Builder with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the Redis client backing the code-request quota.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithGateway supplies the credential gateway.
func (b *Builder) WithGateway(gw CredentialGateway) *Builder {
	b.gateway = gw
	return b
}

// WithOtcSender supplies the code delivery/verification endpoint client.
func (b *Builder) WithOtcSender(sender OtcSender) *Builder {
	b.sender = sender
	return b
}

// WithRecordStore supplies the external record store.
func (b *Builder) WithRecordStore(store RecordStore) *Builder {
	b.records = store
	return b
}

// WithAuditSink supplies the audit sink and enables auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithMetricsEnabled toggles the in-memory counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the wiring and returns the Machine. A Builder builds once.
func (b *Builder) Build() (*Machine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.gateway == nil {
		return nil, errors.New("credential gateway required")
	}
	if b.sender == nil {
		return nil, errors.New("otc sender required")
	}
	if b.records == nil {
		return nil, errors.New("record store required")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	m := &Machine{
		config:  cfg,
		gateway: b.gateway,
		sender:  b.sender,
		records: b.records,
		limiter: newOtcLimiter(b.redis, cfg.Otc),
		oracle:  newStatusOracle(b.records),
		audit:   newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		state:   StateAnonymous,
	}

	b.built = true
	return m, nil
}
