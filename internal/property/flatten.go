package property

// flattener folds join rows into one entity per property ID. Entities are
// kept in the order their ID was first seen.
type flattener[T any] struct {
	order []int64
	byID  map[int64]T
}

func newFlattener[T any]() *flattener[T] {
	return &flattener[T]{byID: make(map[int64]T)}
}

// add stores the entity built for id unless id was already seen, in which
// case build is not called and the stored entity is left untouched.
func (f *flattener[T]) add(id int64, build func() (T, error)) error {
	if _, ok := f.byID[id]; ok {
		return nil
	}
	v, err := build()
	if err != nil {
		return err
	}
	f.byID[id] = v
	f.order = append(f.order, id)
	return nil
}

func (f *flattener[T]) count() int {
	return len(f.order)
}

// ids returns the distinct IDs in first-seen order.
func (f *flattener[T]) ids() []int64 {
	return f.order
}

// values returns the entities in first-seen order.
func (f *flattener[T]) values() []T {
	out := make([]T, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out
}
