package model

import (
	"fmt"
	"slices"

	"msgkit/internal/domain"
)

// BoundedList is an ordered list with a fixed capacity. Push fails once the
// list is full; nothing is ever dropped.
type BoundedList[T any] struct {
	name     string
	capacity int
	items    []T
}

// NewBoundedList creates an empty list. name identifies the list in errors.
func NewBoundedList[T any](name string, capacity int) *BoundedList[T] {
	return &BoundedList[T]{name: name, capacity: capacity}
}

// Push appends item, or returns a CapacityExceeded error when the list is full.
// A nil list has no capacity and accepts nothing.
func (l *BoundedList[T]) Push(item T) error {
	if l == nil {
		return domain.NewValidationError(domain.KindCapacityExceeded, "", "list has no capacity")
	}
	if l.IsFull() {
		return domain.NewValidationError(domain.KindCapacityExceeded, l.name,
			fmt.Sprintf("cannot hold more than %d items", l.capacity))
	}
	l.items = append(l.items, item)
	return nil
}

func (l *BoundedList[T]) Count() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

func (l *BoundedList[T]) Capacity() int {
	if l == nil {
		return 0
	}
	return l.capacity
}

func (l *BoundedList[T]) IsEmpty() bool { return l.Count() == 0 }

// IsFull reports whether Push would fail for lack of room. A nil list is
// empty, not full.
func (l *BoundedList[T]) IsFull() bool { return l != nil && len(l.items) >= l.capacity }

// Items returns a copy of the elements in insertion order.
func (l *BoundedList[T]) Items() []T {
	if l == nil {
		return nil
	}
	return slices.Clone(l.items)
}

// At returns the i-th element.
func (l *BoundedList[T]) At(i int) T {
	return l.items[i]
}
