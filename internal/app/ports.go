package app

import (
	"context"

	"github.com/hylla/folio/internal/domain"
)

// Repository is the key-value storage port for activity records.
// GetActivity returns ErrNotFound for a missing id; DeleteActivity of a missing id is a no-op.
// Engine failures are reported wrapped with ErrStorageUnavailable.
type Repository interface {
	GetActivity(context.Context, string) (domain.Activity, error)
	ListActivities(context.Context) ([]domain.Activity, error)
	PutActivity(context.Context, domain.Activity) error
	DeleteActivity(context.Context, string) error
}

// Flusher persists pending edits of an open editing session.
type Flusher interface {
	ForceSave(context.Context) (bool, error)
}
