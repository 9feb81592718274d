// Package model contains domain models passed between layers.
package model

import "strconv"

// TodoItem is a single todo entry. Key is supplied by the caller on creation
// and never changes afterwards.
type TodoItem struct {
	Key        int64  `json:"key"`
	Name       string `json:"name"`
	IsComplete bool   `json:"isComplete"`
}

// Apply returns a copy of t carrying the mutable fields of u.
// The key of t is kept as is.
func (t TodoItem) Apply(u TodoItem) TodoItem {
	t.Name = u.Name
	t.IsComplete = u.IsComplete
	return t
}

// KeyString formats the key the way it appears in resource paths.
func (t TodoItem) KeyString() string {
	return strconv.FormatInt(t.Key, 10)
}
