package unitofwork

import "context"

// Dissociated is a value that can be fetched outside the scope that created
// it. Each Get loads it again, inside the caller's unit of work when there is
// one and in a fresh one otherwise.
type Dissociated[T any] struct {
	get func(ctx context.Context) (T, error)
}

// Dissociate wraps a loading receiver so its value outlives the current
// scope.
func Dissociate[S Session, T any](f *Facade[S], load SessionReceiver[S, T]) *Dissociated[T] {
	return &Dissociated[T]{
		get: func(ctx context.Context) (T, error) {
			return EnsureUnitOfWork(ctx, f, func(ctx context.Context) (T, error) {
				return WithUnitOfWork(ctx, f, load)
			})
		},
	}
}

// Get loads the value.
func (d *Dissociated[T]) Get(ctx context.Context) (T, error) {
	return d.get(ctx)
}
