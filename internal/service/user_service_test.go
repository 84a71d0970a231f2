package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"NexiaCore/internal/domain"
	"NexiaCore/internal/repository"
	apperrors "NexiaCore/pkg/errors"
)

func TestUserService_Create_Success(t *testing.T) {
	repo := new(MockUserRepository)

	repo.On("ExistsByEmail", mock.Anything, "new@example.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "new@example.com" &&
			u.FullName == "New User" &&
			u.PasswordHash == "" &&
			u.Role == domain.RoleUser
	})).Return(nil)

	svc := NewUserService(repo, nopLogger{})

	user, err := svc.Create(context.Background(), " New@Example.com ", " New User ")
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)
	repo.AssertExpectations(t)
}

func TestUserService_Create_EmailTaken(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("ExistsByEmail", mock.Anything, "taken@example.com").Return(true, nil)

	svc := NewUserService(repo, nopLogger{})

	_, err := svc.Create(context.Background(), "taken@example.com", "Someone")
	assert.ErrorIs(t, err, apperrors.New(apperrors.ErrConflict, ""))
}

func TestUserService_GetByID_NotFound(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("FindByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	svc := NewUserService(repo, nopLogger{})

	_, err := svc.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.New(apperrors.ErrNotFound, ""))
}

func TestUserService_List_SanitizesPagination(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantSize     int
	}{
		{"negative page", -5, 10, 0, 10},
		{"zero size", 2, 0, 2, DefaultPageSize},
		{"negative size", 0, -1, 0, DefaultPageSize},
		{"valid", 3, 50, 3, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			repo.On("FindAll", mock.Anything, tt.wantPage, tt.wantSize).Return([]*domain.User{}, nil)
			repo.On("Count", mock.Anything).Return(int64(0), nil)

			svc := NewUserService(repo, nopLogger{})

			result, err := svc.List(context.Background(), tt.page, tt.size)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPage, result.Page)
			assert.Equal(t, tt.wantSize, result.Size)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_Delete_NotFound(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("Delete", mock.Anything, "missing").Return(repository.ErrNotFound)

	svc := NewUserService(repo, nopLogger{})

	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.New(apperrors.ErrNotFound, ""))
}

func TestUserService_Delete_Success(t *testing.T) {
	repo := new(MockUserRepository)
	repo.On("Delete", mock.Anything, "user-1").Return(nil)

	svc := NewUserService(repo, nopLogger{})

	require.NoError(t, svc.Delete(context.Background(), "user-1"))
	repo.AssertExpectations(t)
}
