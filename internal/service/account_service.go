package service

import (
	"context"
	"errors"

	"github.com/pulseboard/publisher/internal/models"
	"github.com/pulseboard/publisher/internal/repository"
)

// AccountService exposes the read-only view of connected accounts. Linking
// and token refresh live in the OAuth flow, outside this service.
type AccountService interface {
	ListAccounts(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error)
}

type accountService struct {
	ca repository.ConnectedAccountRepository
}

func NewAccountService(ca repository.ConnectedAccountRepository) AccountService {
	return &accountService{ca: ca}
}

func (s *accountService) ListAccounts(ctx context.Context, userID int64) ([]*models.ConnectedAccount, error) {
	if userID == 0 {
		return nil, errors.New("user is not valid")
	}
	return s.ca.ListInfoByUserID(ctx, userID)
}
