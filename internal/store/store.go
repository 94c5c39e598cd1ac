package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"salesdesk/backend/internal/domain"
	"salesdesk/backend/internal/sale"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Repository is the persistence collaborator for sales and auth users.
// Sales are stored and loaded as full graphs: the item collection always
// matches the aggregate exactly after every call.
type Repository interface {
	InsertSale(ctx context.Context, s *sale.Sale) error
	GetSale(ctx context.Context, id uuid.UUID) (*sale.Sale, error)
	// ListSales returns a page ordered by sale date descending, then
	// creation time descending, plus the total number of sales.
	ListSales(ctx context.Context, offset int, limit int) ([]*sale.Sale, int64, error)
	UpdateSale(ctx context.Context, s *sale.Sale) error
	DeleteSale(ctx context.Context, id uuid.UUID) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
