package registry

// Handle is an optional model reference. A zero Handle is Unavailable.
type Handle[T any] struct {
	value T
	ok    bool
}

// Available wraps a loaded model.
func Available[T any](v T) Handle[T] {
	return Handle[T]{value: v, ok: true}
}

// Unavailable returns an empty handle.
func Unavailable[T any]() Handle[T] {
	return Handle[T]{}
}

// Get returns the model and whether it is available.
func (h Handle[T]) Get() (T, bool) {
	return h.value, h.ok
}

// IsAvailable reports whether the handle holds a model.
func (h Handle[T]) IsAvailable() bool {
	return h.ok
}
