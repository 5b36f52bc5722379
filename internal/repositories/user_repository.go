package repositories

import (
	"context"

	"github.com/shorebreak/backend/internal/models"
)

// UserRepository defines the data access contract for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Update(ctx context.Context, user models.User) error
	Delete(ctx context.Context, id string) error
	Summaries(ctx context.Context, ids []string) ([]models.UserSummary, error)
}
