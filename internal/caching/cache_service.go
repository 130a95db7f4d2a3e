package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"pgdesk/internal/models"
)

// DefaultTTL bounds how long a stale read view can survive a missed
// invalidation when no CACHE_TTL is configured. Writers invalidate
// synchronously by key pattern.
const DefaultTTL = 5 * time.Minute

type CacheService interface {
	// Tenant caching
	GetTenant(ctx context.Context, tenantCode string) (*models.Tenant, error)
	SetTenant(ctx context.Context, tenant *models.Tenant) error
	DeleteTenant(ctx context.Context, tenantCode string) error

	// Room caching
	GetRoom(ctx context.Context, roomCode string) (*models.Room, error)
	SetRoom(ctx context.Context, room *models.Room) error
	DeleteRoom(ctx context.Context, roomCode string) error

	// Property caching
	GetProperty(ctx context.Context, propertyCode string) (*models.Property, error)
	SetProperty(ctx context.Context, property *models.Property) error
	DeleteProperty(ctx context.Context, propertyCode string) error

	// Cache invalidation
	InvalidatePattern(ctx context.Context, pattern string) error
	InvalidateTenantViews(ctx context.Context, tenantCode string) error
	InvalidatePropertyViews(ctx context.Context, propertyCode string) error
	InvalidateAllCache(ctx context.Context) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCacheService(addr, password string, db int, ttl time.Duration) CacheService {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	// Parse Redis URL to extract host:port if protocol is included
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return &redisCacheService{client: client, ttl: ttl}
}

func (r *redisCacheService) GetTenant(ctx context.Context, tenantCode string) (*models.Tenant, error) {
	key := fmt.Sprintf("pgdesk:tenant:%s", tenantCode)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var tenant models.Tenant
	if err := json.Unmarshal(data, &tenant); err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *redisCacheService) SetTenant(ctx context.Context, tenant *models.Tenant) error {
	key := fmt.Sprintf("pgdesk:tenant:%s", tenant.TenantCode)
	data, err := json.Marshal(tenant)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *redisCacheService) DeleteTenant(ctx context.Context, tenantCode string) error {
	key := fmt.Sprintf("pgdesk:tenant:%s", tenantCode)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetRoom(ctx context.Context, roomCode string) (*models.Room, error) {
	key := fmt.Sprintf("pgdesk:room:%s", roomCode)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *redisCacheService) SetRoom(ctx context.Context, room *models.Room) error {
	key := fmt.Sprintf("pgdesk:room:%s", room.RoomCode)
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *redisCacheService) DeleteRoom(ctx context.Context, roomCode string) error {
	key := fmt.Sprintf("pgdesk:room:%s", roomCode)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) GetProperty(ctx context.Context, propertyCode string) (*models.Property, error) {
	key := fmt.Sprintf("pgdesk:property:%s", propertyCode)
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var property models.Property
	if err := json.Unmarshal(data, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *redisCacheService) SetProperty(ctx context.Context, property *models.Property) error {
	key := fmt.Sprintf("pgdesk:property:%s", property.PropertyCode)
	data, err := json.Marshal(property)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *redisCacheService) DeleteProperty(ctx context.Context, propertyCode string) error {
	key := fmt.Sprintf("pgdesk:property:%s", propertyCode)
	return r.client.Del(ctx, key).Err()
}

func (r *redisCacheService) InvalidatePattern(ctx context.Context, pattern string) error {
	keys, err := r.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

// InvalidateTenantViews drops every cached view derived from a tenant record,
// including listing pages that embed it.
func (r *redisCacheService) InvalidateTenantViews(ctx context.Context, tenantCode string) error {
	if err := r.DeleteTenant(ctx, tenantCode); err != nil {
		return err
	}
	return r.InvalidatePattern(ctx, "pgdesk:tenants:*")
}

// InvalidatePropertyViews drops the property entry and every room view under it.
func (r *redisCacheService) InvalidatePropertyViews(ctx context.Context, propertyCode string) error {
	if err := r.DeleteProperty(ctx, propertyCode); err != nil {
		return err
	}
	return r.InvalidatePattern(ctx, fmt.Sprintf("pgdesk:room:%s*", propertyCode))
}

func (r *redisCacheService) InvalidateAllCache(ctx context.Context) error {
	return r.InvalidatePattern(ctx, "pgdesk:*")
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
