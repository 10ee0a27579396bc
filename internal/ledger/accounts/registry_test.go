package accounts

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	accounts []Account

	activeIDCalls int
}

func (s *stubRepo) List(context.Context) ([]Account, error) {
	return s.accounts, nil
}

func (s *stubRepo) GetByID(_ context.Context, id int64) (Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *stubRepo) ActiveIDs(context.Context) ([]int64, error) {
	s.activeIDCalls++
	var ids []int64
	for _, a := range s.accounts {
		if a.IsActive {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (s *stubRepo) FirstActiveRevenue(_ context.Context, preferredCode string) (Account, error) {
	var candidates []Account
	for _, a := range s.accounts {
		if a.IsActive && a.Type == AccountTypeRevenue {
			if a.Code == preferredCode {
				return a, nil
			}
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return Account{}, ErrAccountNotFound
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Code < candidates[j].Code })
	return candidates[0], nil
}

func (s *stubRepo) GetActiveByCode(_ context.Context, code string) (Account, error) {
	for _, a := range s.accounts {
		if a.IsActive && a.Code == code {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *stubRepo) Create(_ context.Context, acc Account) (Account, error) {
	acc.ID = int64(len(s.accounts) + 1)
	s.accounts = append(s.accounts, acc)
	return acc, nil
}

func (s *stubRepo) SetActive(_ context.Context, id int64, active bool) error {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].IsActive = active
			return nil
		}
	}
	return ErrAccountNotFound
}

func chartFixture() []Account {
	return []Account{
		{ID: 1, Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, IsActive: true},
		{ID: 2, Code: "2300", Name: "Sales Tax Payable", Type: AccountTypeLiability, IsActive: true},
		{ID: 3, Code: "4000", Name: "Rooms Revenue", Type: AccountTypeRevenue, IsActive: true},
		{ID: 4, Code: "4100", Name: "Restaurant Revenue", Type: AccountTypeRevenue, IsActive: true},
		{ID: 5, Code: "4200", Name: "Retired Revenue", Type: AccountTypeRevenue, IsActive: false},
	}
}

func newCachedRegistry(t *testing.T) (*Registry, *stubRepo, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := &stubRepo{accounts: chartFixture()}
	return NewRegistry(repo, client, time.Minute, "4000"), repo, srv
}

func TestRegistryIsActive(t *testing.T) {
	reg, _, _ := newCachedRegistry(t)

	active, err := reg.IsActive(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, active)

	active, err = reg.IsActive(context.Background(), 5)
	require.NoError(t, err)
	require.False(t, active)

	active, err = reg.IsActive(context.Background(), 999)
	require.NoError(t, err)
	require.False(t, active)
}

func TestRegistryFindInvalidAccountIDs(t *testing.T) {
	reg, _, _ := newCachedRegistry(t)

	invalid, err := reg.FindInvalidAccountIDs(context.Background(), []int64{1, 3, 5, 999, 5})
	require.NoError(t, err)
	require.Equal(t, []int64{5, 999}, invalid)
}

func TestRegistryCachesActiveSet(t *testing.T) {
	reg, repo, srv := newCachedRegistry(t)

	_, err := reg.IsActive(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, repo.activeIDCalls)
	require.True(t, srv.Exists("ledger:accounts:active"))

	// Second lookup is served from the cache.
	_, err = reg.IsActive(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 1, repo.activeIDCalls)
}

func TestRegistryInvalidateDropsCache(t *testing.T) {
	reg, repo, srv := newCachedRegistry(t)

	_, err := reg.IsActive(context.Background(), 1)
	require.NoError(t, err)

	reg.Invalidate(context.Background())
	require.False(t, srv.Exists("ledger:accounts:active"))

	_, err = reg.IsActive(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, repo.activeIDCalls)
}

func TestRegistryWorksWithoutCache(t *testing.T) {
	repo := &stubRepo{accounts: chartFixture()}
	reg := NewRegistry(repo, nil, time.Minute, "4000")

	invalid, err := reg.FindInvalidAccountIDs(context.Background(), []int64{1, 999})
	require.NoError(t, err)
	require.Equal(t, []int64{999}, invalid)
}

func TestRegistryFallbackRevenuePreferred(t *testing.T) {
	reg, _, _ := newCachedRegistry(t)

	acc, err := reg.FallbackRevenueAccount(context.Background())
	require.NoError(t, err)
	require.Equal(t, "4000", acc.Code)
}

func TestRegistryFallbackRevenueLowestCode(t *testing.T) {
	repo := &stubRepo{accounts: chartFixture()}
	reg := NewRegistry(repo, nil, time.Minute, "4999")

	acc, err := reg.FallbackRevenueAccount(context.Background())
	require.NoError(t, err)
	require.Equal(t, "4000", acc.Code)
}

func TestRegistryFallbackRevenueNoneActive(t *testing.T) {
	repo := &stubRepo{accounts: []Account{
		{ID: 1, Code: "1100", Type: AccountTypeAsset, IsActive: true},
	}}
	reg := NewRegistry(repo, nil, time.Minute, "4000")

	_, err := reg.FallbackRevenueAccount(context.Background())
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRegistryControlAccount(t *testing.T) {
	reg, _, _ := newCachedRegistry(t)

	acc, err := reg.ControlAccount(context.Background(), "1100")
	require.NoError(t, err)
	require.Equal(t, int64(1), acc.ID)

	_, err = reg.ControlAccount(context.Background(), "9999")
	require.ErrorIs(t, err, ErrAccountNotFound)
}
