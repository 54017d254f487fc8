package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dosada05/tleague/models"
	"github.com/Dosada05/tleague/repositories"
)

type UserService interface {
	// EnsureUser регистрирует игрока при первом обращении или обновляет имя.
	EnsureUser(ctx context.Context, id int64, username *string, fullName string) (*models.User, error)
	GetProfile(ctx context.Context, id int64) (*models.User, error)
}

type userService struct {
	userRepo      repositories.UserRepository
	initialRating int
}

func NewUserService(userRepo repositories.UserRepository, initialRating int) UserService {
	return &userService{userRepo: userRepo, initialRating: initialRating}
}

func (s *userService) EnsureUser(ctx context.Context, id int64, username *string, fullName string) (*models.User, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid user id", ErrValidationFailed)
	}
	if username != nil {
		trimmed := strings.TrimPrefix(strings.TrimSpace(*username), "@")
		username = &trimmed
		if trimmed == "" {
			username = nil
		}
	}
	u := &models.User{
		ID:           id,
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		RatingRecord: models.RatingRecord{Rating: s.initialRating},
	}
	if err := s.userRepo.Upsert(ctx, nil, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) GetProfile(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, nil, id, false)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return u, nil
}
