package loadtest

import (
	"github.com/juju/errors"

	"github.com/okian/todoapi/internal/domain/model"
)

// verifyListing checks that listed holds every expected item exactly, in
// ascending key order. Items outside the expected key range are ignored.
func verifyListing(listed, expected []model.TodoItem) error {
	if len(expected) == 0 {
		return nil
	}
	lo, hi := expected[0].Key, expected[len(expected)-1].Key

	var prev *model.TodoItem
	found := make(map[int64]model.TodoItem, len(expected))
	for i := range listed {
		item := listed[i]
		if prev != nil && item.Key <= prev.Key {
			return errors.Errorf("listing not ordered: key %d follows %d", item.Key, prev.Key)
		}
		prev = &listed[i]
		if item.Key >= lo && item.Key <= hi {
			found[item.Key] = item
		}
	}

	for _, want := range expected {
		got, ok := found[want.Key]
		if !ok {
			return errors.Errorf("item %d missing from listing", want.Key)
		}
		if got != want {
			return errors.Errorf("item %d: got %+v, want %+v", want.Key, got, want)
		}
	}
	return nil
}

// verifyGone checks that no key in [start, start+n) is still listed.
func verifyGone(listed []model.TodoItem, start int64, n int) error {
	end := start + int64(n)
	for _, item := range listed {
		if item.Key >= start && item.Key < end {
			return errors.Errorf("item %d still present after delete", item.Key)
		}
	}
	return nil
}
