package redis

// Redis key naming conventions for coalesce data.
// All keys are prefixed with "coalesce:" to avoid collisions.

const keyPrefix = "coalesce:"

// ── Lock keys ──

// lockKey returns the key for a lock entry: coalesce:lock:{key}
func lockKey(key string) string { return keyPrefix + "lock:" + key }

// ── Directory keys ──

// recordKey returns the key for a directory record: coalesce:dir:{key}
func recordKey(key string) string { return keyPrefix + "dir:" + key }

// ── DLQ keys ──

// dlqKey returns the key for a DLQ entry entity: coalesce:dlq:{id}
func dlqKey(id string) string { return keyPrefix + "dlq:" + id }

// dlqIDsKey is the Set tracking all DLQ entry IDs for enumeration.
const dlqIDsKey = keyPrefix + "dlq_ids"
