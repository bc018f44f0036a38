package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/disputeflow-backend/internal/platform/envutil"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
)

// Embedder matches the engine's embedding contract.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	EmbedModel() string
}

// cache is a read-through Redis cache in front of the embedding provider.
// Identical document text re-embedded across pipeline runs (retries,
// backfills) hits Redis instead of the provider. Cache failures degrade to
// the provider; they never fail an embed call.
type cache struct {
	log   *logger.Logger
	rdb   *goredis.Client
	ttl   time.Duration
	inner Embedder
}

// New wraps inner with a Redis cache when REDIS_ADDR is configured;
// otherwise the provider is returned unwrapped.
func New(log *logger.Logger, inner Embedder) (Embedder, error) {
	if inner == nil {
		return nil, fmt.Errorf("embedder required")
	}
	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		return inner, nil
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := time.Duration(envutil.Int("EMBED_CACHE_TTL_SECONDS", 7*24*3600)) * time.Second
	return &cache{
		log:   log.With("service", "EmbedCache"),
		rdb:   rdb,
		ttl:   ttl,
		inner: inner,
	}, nil
}

func (c *cache) EmbedModel() string {
	return c.inner.EmbedModel()
}

func (c *cache) key(text string) string {
	sum := sha256.Sum256([]byte(c.inner.EmbedModel() + "|" + text))
	return "embed:" + hex.EncodeToString(sum[:])
}

func (c *cache) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(inputs))
	keys := make([]string, len(inputs))
	for i, text := range inputs {
		keys[i] = c.key(text)
	}

	var missIdx []int
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn("embed cache read failed; falling through to provider", "error", err)
		cached = make([]interface{}, len(inputs))
	}
	for i := range inputs {
		raw, ok := cached[i].(string)
		if !ok {
			missIdx = append(missIdx, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil || len(vec) == 0 {
			missIdx = append(missIdx, i)
			continue
		}
		out[i] = vec
	}

	if len(missIdx) > 0 {
		missInputs := make([]string, len(missIdx))
		for j, i := range missIdx {
			missInputs[j] = inputs[i]
		}
		vecs, err := c.inner.Embed(ctx, missInputs)
		if err != nil {
			return nil, err
		}
		for j, i := range missIdx {
			out[i] = vecs[j]
			if raw, err := json.Marshal(vecs[j]); err == nil {
				if err := c.rdb.Set(ctx, keys[i], raw, c.ttl).Err(); err != nil {
					c.log.Warn("embed cache write failed", "error", err)
				}
			}
		}
	}
	return out, nil
}
