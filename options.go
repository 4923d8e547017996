package tracker

import "time"

const (
	// MaxBatchSize is the largest number of events the backend accepts per request.
	MaxBatchSize = 50
	// DefaultStorageKey is the key the queue snapshot is stored under.
	DefaultStorageKey = "tracker.queue"
)

// Config defines how a Client queues and delivers events.
type Config struct {
	// BatchInterval enables batch mode when positive.
	BatchInterval time.Duration
	BatchSize     int
	Storage       Storage
	StorageKey    string
	Transport     Transport
	HTTPOptions   []HTTPOption
	DistinctID    DistinctIDFunc
	AnonymousID   string
	Anonymizer    Anonymizer
	AutoInsertID  bool
	Clock         Clock
	Logger        Logger
	Metrics       Metrics
	ErrorSink     ErrorSink
}

func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = MaxBatchSize
	}
	if c.StorageKey == "" {
		c.StorageKey = DefaultStorageKey
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.ErrorSink == nil {
		c.ErrorSink = NopErrorSink{}
	}

	return c
}

func (c Config) batchMode() bool {
	return c.BatchInterval > 0
}

// Option configures Client behavior.
type Option func(*Config)

// WithBatchMode queues events and flushes them every interval.
func WithBatchMode(interval time.Duration) Option {
	return func(c *Config) {
		c.BatchInterval = interval
	}
}

// WithBatchSize lowers the number of events per request. Values above MaxBatchSize are rejected.
func WithBatchSize(size int) Option {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithStorage sets the durable store used in batch mode.
func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

// WithStorageKey sets the key the queue snapshot is stored under.
func WithStorageKey(key string) Option {
	return func(c *Config) {
		c.StorageKey = key
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(transport Transport) Option {
	return func(c *Config) {
		c.Transport = transport
	}
}

// WithHTTPOptions configures the default HTTP transport.
func WithHTTPOptions(opts ...HTTPOption) Option {
	return func(c *Config) {
		c.HTTPOptions = append(c.HTTPOptions, opts...)
	}
}

// WithDistinctID sets the source of the current user's distinct id.
func WithDistinctID(fn DistinctIDFunc) Option {
	return func(c *Config) {
		c.DistinctID = fn
	}
}

// WithAnonymousID sets the distinct id used when no user id is known.
// Defaults to a random id generated per Client.
func WithAnonymousID(id string) Option {
	return func(c *Config) {
		c.AnonymousID = id
	}
}

// WithAnonymizer hashes distinct ids and ip addresses before they are queued.
func WithAnonymizer(anonymizer Anonymizer) Option {
	return func(c *Config) {
		c.Anonymizer = anonymizer
	}
}

// WithAutoInsertID generates a $insert_id for track events that do not carry one.
func WithAutoInsertID(enabled bool) Option {
	return func(c *Config) {
		c.AutoInsertID = enabled
	}
}

// WithClock sets the client clock.
func WithClock(clock Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the client logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(c *Config) {
		c.Metrics = metrics
	}
}

// WithErrorSink registers the sink for recoverable failures.
func WithErrorSink(sink ErrorSink) Option {
	return func(c *Config) {
		c.ErrorSink = sink
	}
}
