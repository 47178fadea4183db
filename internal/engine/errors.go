package engine

import "errors"

// ErrPageOutOfRange is returned when a requested page lies outside
// [1, TotalPages].
var ErrPageOutOfRange = errors.New("page out of range")

// ErrInvalidView is returned when a view setting is outside its vocabulary.
var ErrInvalidView = errors.New("invalid view setting")
