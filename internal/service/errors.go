package service

import "errors"

var (
	ErrNotFound      = errors.New("error not found")
	ErrValidation    = errors.New("error validation")
	ErrInvalidImport = errors.New("error invalid import")
	ErrStorage       = errors.New("error storage")
)
