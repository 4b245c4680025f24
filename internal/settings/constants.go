package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "OptiLift"

	// RateLimitKey controls the per-user burst limit per window.
	RateLimitKey = "RATE_LIMIT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"

	// DefaultRateLimit is the fallback burst limit per window (0 means unlimited).
	DefaultRateLimit = 30
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "olft:rl"
)

// Plan limit override keys. Each plan name is interpolated upper-case,
// e.g. PLAN_FREE_DAILY_LIMIT.
const (
	// PlanDailyLimitKeyFormat overrides optimizations per day for a plan.
	PlanDailyLimitKeyFormat = "PLAN_%s_DAILY_LIMIT"
	// PlanMaxFileUploadsKeyFormat overrides max simultaneous uploads for a plan.
	PlanMaxFileUploadsKeyFormat = "PLAN_%s_MAX_FILE_UPLOADS"
	// PlanMaxPasteCharactersKeyFormat overrides max pasted characters for a plan.
	PlanMaxPasteCharactersKeyFormat = "PLAN_%s_MAX_PASTE_CHARACTERS"
	// PlanMaxFileSizeKeyFormat overrides max single file size in bytes for a plan.
	PlanMaxFileSizeKeyFormat = "PLAN_%s_MAX_FILE_SIZE"
)
