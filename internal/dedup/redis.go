// Package dedup menandai webhook yang sudah diproses supaya redelivery dari
// Midtrans tidak diproses ulang.
package dedup

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 24 * time.Hour

// Redis memakai SETNX dengan TTL. Key yang sudah ada = delivery duplikat.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, prefix: "ppob:dedup:", ttl: ttl}
}

// Connect membuat client dan memastikan redis bisa di-ping
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, err
	}
	log.Printf("[Redis] connected to %s", addr)
	return rdb, nil
}

// FirstSeen true kalau key belum pernah tercatat
func (r *Redis) FirstSeen(ctx context.Context, key string) (bool, error) {
	if r == nil || r.client == nil {
		return true, nil
	}
	return r.client.SetNX(ctx, r.prefix+key, time.Now().Unix(), r.ttl).Result()
}

// Forget menghapus key, dipanggil kalau pemrosesan gagal supaya redelivery diproses lagi
func (r *Redis) Forget(ctx context.Context, key string) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		log.Printf("[Redis] gagal hapus key %s: %v", key, err)
	}
}
