package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal-advisor/internal/engine"
)

const (
	activeKeyPrefix = "signals:active:"
	activeTTL       = 24 * time.Hour
)

// Mirror keeps the active signal set readable by other processes. When Redis
// is unavailable or disabled it falls back to an in-memory map so callers
// never have to branch.
type Mirror struct {
	client *redis.Client
	log    zerolog.Logger

	mu       sync.RWMutex
	fallback map[string]engine.Signal
}

// NewMirror connects to Redis at addr. An empty addr yields a memory-only
// mirror. A failed ping degrades to memory-only with a warning rather than
// failing startup.
func NewMirror(ctx context.Context, addr string, db int, log zerolog.Logger) *Mirror {
	m := &Mirror{
		log:      log.With().Str("component", "mirror").Logger(),
		fallback: make(map[string]engine.Signal),
	}
	if addr == "" {
		return m
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		m.log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, mirroring in memory only")
		_ = client.Close()
		return m
	}

	m.client = client
	m.log.Info().Str("addr", addr).Msg("redis mirror connected")
	return m
}

// Put mirrors a signal. Mirror failures are logged, never returned: the
// registry remains the book of record.
func (m *Mirror) Put(ctx context.Context, sig engine.Signal) {
	if m.client == nil {
		m.mu.Lock()
		m.fallback[sig.ID] = sig
		m.mu.Unlock()
		return
	}

	data, err := json.Marshal(sig)
	if err != nil {
		m.log.Error().Err(err).Str("signal_id", sig.ID).Msg("marshal signal for mirror")
		return
	}
	if err := m.client.Set(ctx, activeKeyPrefix+sig.ID, data, activeTTL).Err(); err != nil {
		m.log.Warn().Err(err).Str("signal_id", sig.ID).Msg("mirror write failed")
	}
}

// Remove drops a signal from the mirror once it leaves the active set.
func (m *Mirror) Remove(ctx context.Context, id string) {
	if m.client == nil {
		m.mu.Lock()
		delete(m.fallback, id)
		m.mu.Unlock()
		return
	}

	if err := m.client.Del(ctx, activeKeyPrefix+id).Err(); err != nil {
		m.log.Warn().Err(err).Str("signal_id", id).Msg("mirror delete failed")
	}
}

// Get fetches one mirrored signal.
func (m *Mirror) Get(ctx context.Context, id string) (engine.Signal, bool, error) {
	if m.client == nil {
		m.mu.RLock()
		sig, ok := m.fallback[id]
		m.mu.RUnlock()
		return sig, ok, nil
	}

	data, err := m.client.Get(ctx, activeKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return engine.Signal{}, false, nil
	}
	if err != nil {
		return engine.Signal{}, false, fmt.Errorf("mirror read %s: %w", id, err)
	}

	var sig engine.Signal
	if err := json.Unmarshal(data, &sig); err != nil {
		return engine.Signal{}, false, fmt.Errorf("decode mirrored signal %s: %w", id, err)
	}
	return sig, true, nil
}

// Close releases the Redis connection.
func (m *Mirror) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}
