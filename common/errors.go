package common

import "errors"

var (
	// ErrCacheExhausted is returned when a cache pool has no free slot for an
	// identity that is not already cached.
	ErrCacheExhausted = errors.New("cache exhausted")

	ErrNotFound      = errors.New("no such file or directory")
	ErrNotADirectory = errors.New("not a directory")
	ErrWrongType     = errors.New("wrong inode type")

	// ErrOutOfSpace is returned when a bitmap has no free unit or a file
	// would need more than NDIRECT blocks.
	ErrOutOfSpace = errors.New("no space left on device")

	ErrRange = errors.New("range exceeds file size")

	// ErrIO wraps every failure reported by a block device.
	ErrIO = errors.New("device i/o error")

	ErrInvalidPath     = errors.New("invalid path")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrExists          = errors.New("file exists")
	ErrNotEmpty        = errors.New("directory not empty")
	ErrBusy            = errors.New("resource busy")
	ErrBadFd           = errors.New("bad file descriptor")
	ErrTableFull       = errors.New("open file table full")
	ErrNoDevice        = errors.New("no such device")
	ErrBadSuperblock   = errors.New("bad superblock")
)
