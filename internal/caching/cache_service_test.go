package caching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisCacheServiceUsesConfiguredTTL(t *testing.T) {
	svc := NewRedisCacheService("localhost:6390", "", 0, 90*time.Second)
	assert.Equal(t, 90*time.Second, svc.(*redisCacheService).ttl)
}

func TestNewRedisCacheServiceFallsBackToDefaultTTL(t *testing.T) {
	svc := NewRedisCacheService("localhost:6390", "", 0, 0)
	assert.Equal(t, DefaultTTL, svc.(*redisCacheService).ttl)
}
