package database

import "errors"

/*

	Metadata store errors

	Parent failures are split in two so callers can tell a dangling
	reference from a reference at the wrong kind, even when the HTTP
	boundary surfaces both as the same status code.

*/
var (
	ErrNotFound        = errors.New("not found")
	ErrUserExists      = errors.New("user already exists")
	ErrParentNotFound  = errors.New("parent not found")
	ErrParentNotFolder = errors.New("parent is not a folder")
)
