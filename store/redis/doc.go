// Package redis implements store.Store backed by Redis.
//
// Locks are plain string keys written with SET NX PX; release runs a
// Lua script that deletes the key only while the caller's token still
// matches. Directory records are codec-encoded values whose Redis TTL
// matches the embedded expiry, so the server evicts them on schedule
// and SweepExpired has nothing to do. DLQ entries are Hashes indexed
// by a Set for enumeration.
//
// The caller owns the client lifecycle — the store never closes it.
// Pass any redis.Cmdable through the constructor:
//
//	import (
//	    goredis "github.com/redis/go-redis/v9"
//	    redisstore "github.com/xraph/coalesce/store/redis"
//	)
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
