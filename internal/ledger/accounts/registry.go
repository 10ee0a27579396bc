package accounts

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const activeSetKey = "ledger:accounts:active"

// Registry answers the posting engine's account questions: is this id an active
// account, which ids in a document are invalid, and which revenue account to fall
// back to when a line carries no reference. The active-id set is cached in Redis;
// concurrent refreshes collapse through singleflight. With no Redis client the
// registry reads straight from Postgres.
type Registry struct {
	repo                 Repository
	cache                *redis.Client
	ttl                  time.Duration
	preferredRevenueCode string
	group                singleflight.Group
}

func NewRegistry(repo Repository, cache *redis.Client, ttl time.Duration, preferredRevenueCode string) *Registry {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Registry{repo: repo, cache: cache, ttl: ttl, preferredRevenueCode: preferredRevenueCode}
}

func (r *Registry) activeSet(ctx context.Context) (map[int64]struct{}, error) {
	if r.cache != nil {
		payload, err := r.cache.Get(ctx, activeSetKey).Bytes()
		if err == nil {
			var ids []int64
			if err := json.Unmarshal(payload, &ids); err == nil {
				return toSet(ids), nil
			}
		} else if err != redis.Nil {
			return nil, err
		}
	}

	v, err, _ := r.group.Do(activeSetKey, func() (any, error) {
		ids, err := r.repo.ActiveIDs(ctx)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if raw, err := json.Marshal(ids); err == nil {
				_ = r.cache.Set(ctx, activeSetKey, raw, r.ttl).Err()
			}
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}
	return toSet(v.([]int64)), nil
}

// IsActive reports whether id refers to an active account.
func (r *Registry) IsActive(ctx context.Context, id int64) (bool, error) {
	set, err := r.activeSet(ctx)
	if err != nil {
		return false, err
	}
	_, ok := set[id]
	return ok, nil
}

// FindInvalidAccountIDs returns the subset of ids that do not refer to an active
// account, validating a whole document's references in one pass.
func (r *Registry) FindInvalidAccountIDs(ctx context.Context, ids []int64) ([]int64, error) {
	set, err := r.activeSet(ctx)
	if err != nil {
		return nil, err
	}
	var invalid []int64
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := set[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	return invalid, nil
}

// FallbackRevenueAccount resolves the revenue account used when an allocation line
// carries no account reference: the preferred code when active, else the active
// revenue account with the lowest code. Returns ErrAccountNotFound when none exist.
func (r *Registry) FallbackRevenueAccount(ctx context.Context) (Account, error) {
	return r.repo.FirstActiveRevenue(ctx, r.preferredRevenueCode)
}

// ControlAccount resolves an active account by code (AR control, sales tax payable).
func (r *Registry) ControlAccount(ctx context.Context, code string) (Account, error) {
	return r.repo.GetActiveByCode(ctx, code)
}

// Invalidate drops the cached active set after administrative changes.
func (r *Registry) Invalidate(ctx context.Context) {
	if r.cache != nil {
		_ = r.cache.Del(ctx, activeSetKey).Err()
	}
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
