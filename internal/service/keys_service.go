package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crosscast/crosscast/internal/models"
	"github.com/crosscast/crosscast/internal/repository"
	"github.com/crosscast/crosscast/pkg/utils"
)

type ApiKeyService interface {
	Create(ctx context.Context, workspaceID int64) error
	List(ctx context.Context, workspaceID int64) ([]*models.ApiKey, error)
	GetWorkspaceID(ctx context.Context, apiKey string) (int64, error)
	RemoveAPIKey(ctx context.Context, workspaceID, keyID int64) error
}

type apiKeyService struct {
	k repository.ApiKeyRepository
}

func NewApiKeyService(k repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{
		k: k,
	}
}

func (s *apiKeyService) Create(ctx context.Context, workspaceID int64) error {
	keys, err := s.k.GetByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return err
	}

	if len(keys) > 4 {
		err = errors.New("only 5 API keys can be created")
		slog.Info(err.Error())
		return err
	}

	key, err := utils.GenerateRandomKey(16)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("error generating API key")
	}

	apiKey := &models.ApiKey{
		WorkspaceID: workspaceID,
		ApiKey:      key,
	}

	_, err = s.k.Create(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("error saving API key")
	}
	return nil
}

func (s *apiKeyService) GetWorkspaceID(ctx context.Context, apiKey string) (int64, error) {
	workspaceID, isExist, err := s.k.GetByKey(ctx, apiKey)
	if err != nil {
		return 0, err
	}

	if !isExist {
		return 0, errors.New("key doesn't exist")
	}

	return *workspaceID, nil
}

func (s *apiKeyService) List(ctx context.Context, workspaceID int64) ([]*models.ApiKey, error) {
	apiKeys, err := s.k.GetByWorkspaceID(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("error getting API keys")
	}
	return apiKeys, nil
}

func (s *apiKeyService) RemoveAPIKey(ctx context.Context, workspaceID, keyID int64) error {
	var err error

	if workspaceID == 0 {
		err = errors.New("workspace is not valid")
		slog.Info(err.Error())
		return err
	}

	if keyID == 0 {
		err = errors.New("key id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.k.CheckByWorkspaceID(ctx, keyID, workspaceID)
	if err != nil {
		return err
	}

	if !isValid {
		err = errors.New("key doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.k.Remove(ctx, keyID)
	if err != nil {
		return err
	}
	return nil
}
