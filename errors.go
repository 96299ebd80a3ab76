package fat32

import "errors"

// These errors make up the outcome taxonomy of all volume operations.
// Each of them can be detected with errors.Is even when decorated by a
// checkpoint.
var (
	// ErrEndOfDirectory signals that a directory scan consumed every entry.
	// It is the normal termination of a cursor, not a failure.
	ErrEndOfDirectory = errors.New("end of directory")

	// ErrCorruptEntry signals that an on-disk directory record violates the
	// structural rules of FAT32, for example a long name chain that does not
	// start with the last-entry flag. A cursor that returned ErrCorruptEntry
	// must not be advanced again.
	ErrCorruptEntry = errors.New("corrupt directory entry")

	// ErrReadSector signals that the underlying device failed to deliver a
	// sector. Terminal for the current operation.
	ErrReadSector = errors.New("could not read sector")

	// ErrInvalidName is returned when a caller-supplied file or directory
	// name is not a legal FAT name.
	ErrInvalidName = errors.New("invalid name")

	// ErrFileNotFound is returned when a directory scan ended without a
	// matching file entry.
	ErrFileNotFound = errors.New("file not found")

	// ErrDirNotFound is returned when a directory scan ended without a
	// matching directory entry.
	ErrDirNotFound = errors.New("directory not found")

	// ErrNotFat32 is returned while mounting a volume whose boot sector does
	// not describe a FAT32 filesystem.
	ErrNotFat32 = errors.New("no FAT32 filesystem")

	// ErrReadOnly is returned by every mutating operation.
	ErrReadOnly = errors.New("filesystem is read-only")
)
