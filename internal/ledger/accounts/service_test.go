package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newAdminService(t *testing.T) (*Service, *Registry, *stubRepo) {
	t.Helper()
	repo := &stubRepo{accounts: chartFixture()}
	registry := NewRegistry(repo, nil, time.Minute, "4000")
	return NewService(repo, registry), registry, repo
}

func TestCreateAccountDefaultsNormalBalance(t *testing.T) {
	svc, _, _ := newAdminService(t)

	created, err := svc.Create(context.Background(), Account{
		Code: "5000",
		Name: "Housekeeping Supplies",
		Type: AccountTypeExpense,
	})
	require.NoError(t, err)
	require.Equal(t, NormalBalanceDebit, created.NormalBalance)
	require.True(t, created.IsActive)

	created, err = svc.Create(context.Background(), Account{
		Code: "4300",
		Name: "Spa Revenue",
		Type: AccountTypeRevenue,
	})
	require.NoError(t, err)
	require.Equal(t, NormalBalanceCredit, created.NormalBalance)
}

func TestCreateAccountValidation(t *testing.T) {
	svc, _, _ := newAdminService(t)

	_, err := svc.Create(context.Background(), Account{Name: "No code", Type: AccountTypeAsset})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), Account{Code: "6000", Type: AccountTypeAsset})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), Account{Code: "6000", Name: "Bad type", Type: "PIGGYBANK"})
	require.Error(t, err)
}

func TestDeactivateBlocksNewReferences(t *testing.T) {
	svc, registry, _ := newAdminService(t)

	require.NoError(t, svc.Deactivate(context.Background(), 3))

	invalid, err := registry.FindInvalidAccountIDs(context.Background(), []int64{3})
	require.NoError(t, err)
	require.Equal(t, []int64{3}, invalid)
}

func TestDeactivateMissingAccount(t *testing.T) {
	svc, _, _ := newAdminService(t)
	require.ErrorIs(t, svc.Deactivate(context.Background(), 999), ErrAccountNotFound)
}
