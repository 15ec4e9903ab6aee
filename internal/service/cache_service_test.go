package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/tuitron-api/pkg/errors"
)

type memoryCacheRepo struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if r.failGet != nil {
		return r.failGet
	}
	raw, ok := r.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.data[key] = raw
	r.ttls[key] = ttl
	return nil
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var certs map[string]string
	hit, err := svc.Get(ctx, "firebase:certs", &certs)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "firebase:certs", map[string]string{"kid-1": "PEM"}, 0))
	assert.Equal(t, time.Hour, repo.ttls["firebase:certs"])

	hit, err = svc.Get(ctx, "firebase:certs", &certs)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "PEM", certs["kid-1"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.failGet = errors.New("redis: connection refused")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var dest map[string]string
	hit, err := svc.Get(context.Background(), "k", &dest)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestDisabledCacheIsNoop(t *testing.T) {
	repo := newMemoryCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(context.Background(), "k", "v", 0))
	assert.Empty(t, repo.data)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", new(string))
	require.NoError(t, err)
	assert.False(t, hit)
}
