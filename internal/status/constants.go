// internal/status/constants.go
package status

// ---- HEALTH CODES ----

// HealthUnknown means the block has not completed a poll cycle yet.
const HealthUnknown uint16 = 0

// HealthOK means the last poll cycle succeeded.
const HealthOK uint16 = 1

// HealthError means the last poll cycle failed.
const HealthError uint16 = 2

// HealthStale means the last success is older than the stale threshold.
const HealthStale uint16 = 3

// HealthDisabled means no poller serves the block.
const HealthDisabled uint16 = 4

// ---- LIMITS ----

// MaxSecondsInError caps SecondsInError. It MUST NOT wrap.
const MaxSecondsInError = 65535
