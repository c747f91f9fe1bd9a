package constants

import "time"

const (
	DefaultRequestTimeout = 10 * time.Second

	// CommitTimeout bounds a booking commit. The commit itself ignores client
	// cancellation.
	CommitTimeout = 5 * time.Second

	BusyFetchTimeout = 3 * time.Second
	EffectTimeout    = 15 * time.Second
	ShutdownTimeout  = 10 * time.Second
	HealthTimeout    = 2 * time.Second

	RateLimitCleanupInterval = time.Minute
)

const (
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes
	DatabaseSSLMode         = "disable"
)

// Scheduling rules shared by resolver, ledger and service.
const (
	// SlotQuantum is the booking grid: every slot start is aligned to a
	// quantum boundary in host-local wall-clock time.
	SlotQuantum = 15 * time.Minute

	// HardAdvanceCeiling applies on top of each host's maxAdvanceDays.
	HardAdvanceCeiling = 365 * 24 * time.Hour

	MaxCancellationReasonLength = 1000
	MaxBlocksPerDay             = 12
	MaxEventDurationMinutes     = 720
	MaxBufferMinutes            = 240
	MaxAdvanceDaysLimit         = 365

	// ManageTokenLength with a 62-symbol alphabet gives ~190 bits.
	ManageTokenLength = 32
)

const (
	ContextTokenData = "token_data"
	HeaderRequestID  = "X-Request-ID"
)

const (
	RedisKeyBusyIntervals = "busy:"
	BusyCacheTTL          = 60 * time.Second

	RedisKeyOAuthState = "oauth_state:"
	OAuthStateTTL      = 10 * time.Minute
)

const (
	QueueDefault  = "default"
	QueueCritical = "critical"
	TaskMaxRetry  = 5

	DailyDigestCron = "0 7 * * *"
)

const (
	BriefObjectPrefix = "briefs/"
)
