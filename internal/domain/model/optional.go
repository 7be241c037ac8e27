package model

type presence uint8

const (
	absent presence = iota
	null
	present
)

// Optional distinguishes a field that was never supplied from one explicitly set to
// null and from one carrying a value. The zero value is absent.
type Optional[T any] struct {
	value    T
	presence presence
}

func Absent[T any]() Optional[T] {
	return Optional[T]{}
}

func Null[T any]() Optional[T] {
	return Optional[T]{presence: null}
}

func Of[T any](v T) Optional[T] {
	return Optional[T]{value: v, presence: present}
}

func (o Optional[T]) IsAbsent() bool { return o.presence == absent }
func (o Optional[T]) IsNull() bool   { return o.presence == null }
func (o Optional[T]) HasValue() bool { return o.presence == present }

// Get returns the value and whether one is carried.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.presence == present
}

// OrElse returns the carried value or fallback when absent or null.
func (o Optional[T]) OrElse(fallback T) T {
	if o.presence == present {
		return o.value
	}

	return fallback
}
