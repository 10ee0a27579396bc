package accounts

import (
	"context"
	"errors"
	"strings"
)

// Service covers the administrative surface of the chart of accounts. The posting
// engine itself goes through the Registry and never mutates accounts.
type Service struct {
	repo     Repository
	registry *Registry
}

func NewService(repo Repository, registry *Registry) *Service {
	return &Service{repo: repo, registry: registry}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.GetByID(ctx, id)
}

// Create registers a new account and invalidates the registry cache.
func (s *Service) Create(ctx context.Context, acc Account) (Account, error) {
	acc.Code = strings.TrimSpace(acc.Code)
	if acc.Code == "" {
		return Account{}, errors.New("accounts: code required")
	}
	if acc.Name == "" {
		return Account{}, errors.New("accounts: name required")
	}
	switch acc.Type {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
	default:
		return Account{}, errors.New("accounts: unknown account type")
	}
	if acc.NormalBalance == "" {
		acc.NormalBalance = NormalBalanceFor(acc.Type)
	}
	acc.IsActive = true
	created, err := s.repo.Create(ctx, acc)
	if err != nil {
		return Account{}, err
	}
	if s.registry != nil {
		s.registry.Invalidate(ctx)
	}
	return created, nil
}

// Deactivate retires an account. Existing journal lines keep referencing it; only
// new lines are blocked.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	if s.registry != nil {
		s.registry.Invalidate(ctx)
	}
	return nil
}
