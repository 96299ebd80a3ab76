package fat32

import (
	"strings"

	"github.com/blockfs/fat32/checkpoint"
)

// illegalNameCharacters are the characters which must not occur in a FAT
// file or directory name.
const illegalNameCharacters = `\/:*?"<>|`

// isLegalName reports whether name is a legal FAT entry name.
// A name is illegal if it is empty, longer than maxLongNameLength, starts
// with a space, consists only of spaces or contains an illegal character.
func isLegalName(name string) bool {
	if name == "" || len(name) > maxLongNameLength {
		return false
	}
	if name[0] == ' ' {
		return false
	}
	if strings.ContainsAny(name, illegalNameCharacters) {
		return false
	}
	return strings.Trim(name, " ") != ""
}

// decodeShortName decodes the 8.3 name from the first 11 bytes of a short
// name record. Trailing padding spaces are stripped, the dot is only added
// when an extension exists.
func decodeShortName(record []byte) string {
	base := strings.TrimRight(string(record[:8]), " ")
	ext := strings.TrimRight(string(record[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// longNameWindows are the three byte ranges of a long name fragment which
// hold name characters. Only the low byte of each UCS-2 character is stored
// in them, the high bytes are not part of the windows.
var longNameWindows = [3][2]int{{1, 11}, {14, 26}, {28, 32}}

// appendLongName decodes the long name fragments stored in sector between
// the record offsets first and last (first >= last, both inclusive) and
// appends the characters to dst. The fragments of a chain are stored in
// reverse order, so walking the offsets downward emits the characters in
// name order. Padding bytes (0) and bytes outside of the ASCII range are
// dropped. A name which would grow beyond maxLongNameLength is corruption.
func appendLongName(dst []byte, sector []byte, first, last int) ([]byte, error) {
	for i := first; i >= last; i -= entrySize {
		for _, window := range longNameWindows {
			for n := i + window[0]; n < i+window[1]; n++ {
				c := sector[n]
				if c == 0 || c > 126 {
					continue
				}
				if len(dst) >= maxLongNameLength {
					return dst, checkpoint.From(ErrCorruptEntry)
				}
				dst = append(dst, c)
			}
		}
	}
	return dst, nil
}
