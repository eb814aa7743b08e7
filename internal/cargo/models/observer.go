package models

import (
	"fmt"
	"reflect"

	dErrors "cargotrack/pkg/domain-errors"
)

// Observable is an entity whose changes can be observed.
type Observable interface {
	ID() string
	Kind() Kind
}

// Subscriber receives change notifications. source is the entity that changed
// and may be nil for a generic update. Returned errors are reported to the
// notifying entity's FailureReporter and never reach the mutating caller.
type Subscriber interface {
	Updated(source Observable) error
}

// Trackable is an Observable that accepts subscribers.
type Trackable interface {
	Observable
	Track(sub Subscriber) error
	Untrack(sub Subscriber) error
}

// Locator is implemented by entities that may have a geographic position.
type Locator interface {
	Location() (Location, bool)
}

// FailureReporter is told about subscribers that failed during notification.
type FailureReporter func(source Observable, sub Subscriber, err error)

// orderedSet is an insertion-ordered set. Iteration order drives notification
// order, which keeps cascades deterministic.
type orderedSet[T comparable] struct {
	items []T
	index map[T]int
}

func (s *orderedSet[T]) add(v T) bool {
	if s.index == nil {
		s.index = make(map[T]int)
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

func (s *orderedSet[T]) remove(v T) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	delete(s.index, v)
	copy(s.items[i:], s.items[i+1:])
	var zero T
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

func (s *orderedSet[T]) has(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *orderedSet[T]) len() int {
	return len(s.items)
}

// snapshot returns a copy safe to iterate while the set is mutated.
func (s *orderedSet[T]) snapshot() []T {
	return append([]T(nil), s.items...)
}

func (s *orderedSet[T]) clear() {
	s.items = nil
	s.index = nil
}

// checkSubscriber rejects values that cannot serve as set members.
func checkSubscriber(sub Subscriber) error {
	if sub == nil {
		return dErrors.New(dErrors.CodeValidation, "tracker must not be nil")
	}
	v := reflect.ValueOf(sub)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		if v.IsNil() {
			return dErrors.New(dErrors.CodeValidation, "tracker must not be nil")
		}
	}
	if !v.Type().Comparable() {
		return dErrors.New(dErrors.CodeTypeMismatch, "tracker objects not hashable")
	}
	return nil
}

// notifyAll delivers source to every subscriber in subs. A failing or
// panicking subscriber does not stop delivery to the rest.
func notifyAll(source Observable, subs []Subscriber, report FailureReporter) {
	for _, sub := range subs {
		if err := notifyOne(source, sub); err != nil && report != nil {
			report(source, sub, err)
		}
	}
}

func notifyOne(source Observable, sub Subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber panicked: %v", r)
		}
	}()
	return sub.Updated(source)
}
