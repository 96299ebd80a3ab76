package fat32

import (
	"time"
)

// ParseDate reads the given input as a FAT date stamp: a 16 bit field
// relative to the MS-DOS epoch of 01/01/1980.
//  Bits 0-4:  day of month, valid range 1-31.
//  Bits 5-8:  month of year, 1 = January, valid range 1-12.
//  Bits 9-15: count of years from 1980, valid range 0-127 (1980-2107).
// It returns a time.Time which always has a time of 00:00:00 UTC.
//
// As value 0 for day and month is defined as invalid in the specification,
// time.Time{} is returned in that case to stay compatible with
// time.Time.IsZero().
//
// Note that a month bigger than 12 is unspecified; in this case the year
// gets incremented by one by the time package.
func ParseDate(input uint16) time.Time {
	dayOfMonth := input & 0x1F
	monthOfYear := input & 0x1E0 >> 5
	yearSince1980 := input & 0xFE00 >> 9

	if dayOfMonth == 0 || monthOfYear == 0 {
		return time.Time{}
	}

	return time.Date(1980+int(yearSince1980), time.Month(monthOfYear), int(dayOfMonth), 0, 0, 0, 0, time.UTC)
}

// ParseTime reads the given input as a FAT time stamp, which has a
// granularity of 2 seconds:
//  Bits 0-4:   2-second count, valid range 0-29 (0-58 seconds).
//  Bits 5-10:  minutes, valid range 0-59.
//  Bits 11-15: hours, valid range 0-23.
// It returns a time.Time which always has a date of January 1, year 1, so
// that for a time of 00:00:00 time.Time.IsZero() can be used.
//
// Bigger values than the specified ones are just added to the time but
// clamped to 23:59:59. This only happens if the time field is invalid.
func ParseTime(input uint16) time.Time {
	seconds := int(input&0x1F) * 2
	minutes := input & 0x7E0 >> 5
	hours := input & 0xF800 >> 11

	result := time.Date(1, 1, 1, int(hours), int(minutes), seconds, 0, time.UTC)

	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}
