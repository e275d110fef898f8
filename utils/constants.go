package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour

	// VerificationTokenTTL is the time-to-live for email verification and
	// password reset tokens (24 hours)
	VerificationTokenTTL = 24 * time.Hour
)

// DMR network constants
const (
	// LocalTalkgroupID is the reserved talkgroup for node-local traffic.
	// Calls to this talkgroup are excluded from statistics by convention.
	LocalTalkgroupID = 9

	// MinCallDuration is the minimum call duration in seconds. Calls at or
	// below this threshold are treated as keyups/noise and not persisted.
	MinCallDuration = 5

	// WorldwideCountry is the pseudo-country used by worldwide talkgroups.
	WorldwideCountry = "Worldwide"

	// GlobalContinent is the continent assigned to worldwide talkgroups.
	GlobalContinent = "Global"
)

// Retention and scheduling constants
const (
	// CallRetentionAge is how long call records are kept before pruning.
	CallRetentionAge = 7 * 24 * time.Hour

	// MaintenanceInterval is the cadence of the retention jobs.
	MaintenanceInterval = 24 * time.Hour

	// TalkgroupRefreshHour is the local wall-clock hour of the daily
	// talkgroup directory refresh.
	TalkgroupRefreshHour = 2

	// InsertLogMilestone controls how often the ingest pipeline logs a
	// progress line (every N persisted calls).
	InsertLogMilestone = 100
)

// HTTP constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// ContextKey is the type for request-scoped context values
type ContextKey string

// Request context keys
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Statistics query constants
const (
	// DefaultStatsLimit is the number of rows returned when the caller
	// does not supply a limit.
	DefaultStatsLimit = 25

	// MaxStatsLimit caps caller-supplied limits.
	MaxStatsLimit = 250

	// AllContinents is the sentinel continent value meaning "no filter".
	AllContinents = "all"
)
