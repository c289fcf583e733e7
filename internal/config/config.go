package config

const (
	DefaultTimeZone = "America/Tegucigalpa"

	// Contract-expiry scan defaults. The cron service reads overrides from
	// services.yaml; these apply when the config map omits them.
	DefaultExpirySchedule = "0 6 * * *"
	DefaultExpiryWindow   = 30
	ExpiryScanBatchSize   = 500

	// Validity rules: contract dates outside this range are treated as
	// malformed legacy data and the validity snapshot degrades to N/A.
	MinContractYear = 2000
	MaxContractYear = 2099

	// Gateway rate limiting (best-effort, in-process).
	RateLimitPerMinute = 300
)
