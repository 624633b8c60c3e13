package storage

import "errors"

var ErrNotFound = errors.New("error not found")
