package service

import (
	"errors"

	"github.com/padilotto/lotto-service/internal/repo"
	"github.com/padilotto/lotto-service/internal/ticketid"
	"go.uber.org/zap"
)

// ErrInvalidAmount means non-positive amount passed.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrUserNotFound means the user id resolves to no account.
var ErrUserNotFound = errors.New("user not found")

// Service glues the purchase orchestration and wallet operations to the
// repository.
type Service struct {
	repo         repo.RepositoryInterface
	ids          *ticketid.Generator
	ledgerStrict bool
	log          *zap.SugaredLogger
}

// New returns Service. ledgerStrict controls whether a failed ledger write
// rolls back an otherwise complete purchase.
func New(r repo.RepositoryInterface, ids *ticketid.Generator, ledgerStrict bool, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, ids: ids, ledgerStrict: ledgerStrict, log: logger}
}

// Repo exposes underlying repository (unit tests helper).
func (s *Service) Repo() repo.RepositoryInterface {
	return s.repo
}
