package student

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Student entities.
type Repository interface {
	// Create finds the student by name among the guardian's children or
	// inserts a new one linked to the guardian. Re-adding an existing child
	// fills s with the stored row and creates nothing.
	Create(ctx context.Context, guardianID string, s *Student) error
	ListByGuardian(ctx context.Context, guardianID string) ([]*Student, error)
}
