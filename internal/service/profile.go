package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/domain"
	"github.com/yousefabuzaid/sooqnaa-backend-main/internal/repository"
)

// GetUser devuelve el usuario por id.
func (s *AuthService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// ProfileUpdate aplica solo los campos presentes.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
}

// UpdateProfile actualiza los datos editables del perfil. Un teléfono ya en
// uso por otro usuario falla con ErrConflict.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (domain.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*update.AvatarURL)
	}
	user.UpdatedAt = s.now()

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return domain.User{}, ErrConflict
		}
		return domain.User{}, err
	}
	return user, nil
}
