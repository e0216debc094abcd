package message

import (
	"context"
)

// Repository defines the append-only message log operations.
type Repository interface {
	Create(ctx context.Context, m *Message) error
}
