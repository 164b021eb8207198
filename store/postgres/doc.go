// Package postgres implements the store using pgx/v5 with raw SQL.
// Locks are single-row upserts whose conflict branch only fires on
// expired rows, directory records are TTL-stamped rows filtered at
// read time, and every expiry comparison runs on the database clock.
// Schema comes from embedded SQL migrations.
package postgres
