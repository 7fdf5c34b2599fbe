package types

import "context"

// Service is the remote collection an entity store synchronizes with.
// Any failure is returned as an error carrying a human-readable message;
// transport and HTTP failures are *RemoteError.
type Service[T Entity, F any] interface {
	// GetAll returns the requested page of entities matching filters along
	// with the total number of matches.
	GetAll(ctx context.Context, filters F, page PageRequest) (Page[T], error)

	// Create sends a new entity without its ID and returns the entity
	// as stored, with the server-assigned ID.
	Create(ctx context.Context, entity T) (T, error)

	// Update sends the full entity and returns it as stored.
	Update(ctx context.Context, entity T) (T, error)

	// Delete removes the entity with the given ID.
	Delete(ctx context.Context, id int64) error

	// DeleteMany removes every entity in ids. On failure some of the
	// entities may already be gone.
	DeleteMany(ctx context.Context, ids []int64) error
}
