package fat32

import (
	"os"
	"time"
)

// FileInfo returns an os.FileInfo view of the entry.
func (e *DirEntry) FileInfo() os.FileInfo {
	return dirEntryFileInfo{*e}
}

type dirEntryFileInfo struct {
	entry DirEntry
}

// Name returns the long name of the entry, which equals the decoded 8.3
// name for entries without a long name chain.
func (e dirEntryFileInfo) Name() string {
	return e.entry.ExtendedName
}

func (e dirEntryFileInfo) Size() int64 {
	return int64(e.entry.FileSize)
}

func (e dirEntryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir
	}
	return 0
}

// ModTime combines the last write date and time fields of the entry.
// An invalid date results in time.Time{}; writeTime cannot be checked the
// same way because a zero write time is perfectly valid.
func (e dirEntryFileInfo) ModTime() time.Time {
	writeDate := ParseDate(e.entry.WriteDate)
	writeTime := ParseTime(e.entry.WriteTime)

	if writeDate.IsZero() {
		return time.Time{}
	}

	return time.Date(writeDate.Year(), writeDate.Month(), writeDate.Day(),
		writeTime.Hour(), writeTime.Minute(), writeTime.Second(), 0, time.UTC)
}

func (e dirEntryFileInfo) IsDir() bool {
	return e.entry.EntryHeader.IsDir()
}

func (e dirEntryFileInfo) Sys() interface{} {
	return e.entry
}
