package guardian

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Guardian entities.
type Repository interface {
	Create(ctx context.Context, g *Guardian) error
	GetByID(ctx context.Context, id string) (*Guardian, error)
	GetByLineUserID(ctx context.Context, lineUserID string) (*Guardian, error)
	Rename(ctx context.Context, id string, name string) error
	ListWithLineUserID(ctx context.Context) ([]*Guardian, error)
}
