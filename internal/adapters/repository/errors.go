package repository

import "github.com/juju/errors"

// NotFound returns the error reported when no item is stored under key.
func NotFound(key int64) error {
	return errors.NotFoundf("todo item %d", key)
}

// AlreadyExists returns the error reported when key is already taken.
func AlreadyExists(key int64) error {
	return errors.AlreadyExistsf("todo item %d", key)
}
