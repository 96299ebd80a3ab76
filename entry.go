package fat32

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blockfs/fat32/checkpoint"
)

// Long name state flags of a Cursor. They describe where the short name
// record of the last returned entry was found so the next call can skip the
// already consumed record slots.
const (
	// lnExists: the last returned entry had a long name chain.
	lnExists uint8 = 1 << iota
	// lnCrossesSector: the chain crossed the sector boundary, the short
	// name record sits inside of the following sector.
	lnCrossesSector
	// lnLastSectorEntry: the chain filled the sector exactly, the short
	// name record is byte 0 of the following sector.
	lnLastSectorEntry
)

// Cursor is a resumable scan position inside of one directory's record
// stream. The zero value is not usable, create cursors through newCursor.
// A cursor which returned an error other than ErrEndOfDirectory must be
// discarded, continuing the scan with it is undefined.
type Cursor struct {
	// cluster and sectorInCluster describe the sector the scan currently
	// reads. After an entry with a long name chain was returned they point
	// at the sector holding the start of the chain, which is not
	// necessarily the sector of the short name record.
	cluster         fatEntry
	sectorInCluster uint8

	// offset is the byte offset of the next record candidate.
	offset uint16

	lnFlags uint8

	// snPosCurrent is the short name record offset relative to the stashed
	// sector, snPosNext the offset inside of the following sector when the
	// chain reached across the boundary.
	snPosCurrent uint16
	snPosNext    uint16
}

// newCursor creates a cursor scanning the directory which starts at the
// given cluster.
func (fs *Fs) newCursor(first fatEntry) Cursor {
	return Cursor{cluster: first}
}

// DirEntry is one fully decoded directory entry as produced by nextEntry.
type DirEntry struct {
	ExtendedEntryHeader

	// ShortName is the decoded 8.3 name of the record.
	ShortName string

	raw             [entrySize]byte
	cluster         fatEntry
	sectorInCluster uint8
	offset          uint16
}

// Raw returns a copy of the 32 byte short name record as stored on disk.
func (e *DirEntry) Raw() [entrySize]byte {
	return e.raw
}

// Location returns the physical position of the short name record: its
// cluster, sector-in-cluster and byte offset within that sector. For a long
// name chain crossing the sector boundary this is the sector holding the
// short name record, not the sector the chain starts in.
func (e *DirEntry) Location() (cluster uint32, sectorInCluster uint8, offset uint16) {
	return e.cluster.Value(), e.sectorInCluster, e.offset
}

// nextEntry advances the cursor to the next in-use record of its directory
// and returns the record fully decoded. The order is the on-disk order,
// deleted records are skipped without being returned. ErrEndOfDirectory
// signals that the scan consumed every record.
func (fs *Fs) nextEntry(c *Cursor) (DirEntry, error) {
	sectorSize := fs.info.SectorSize

	// Resume correction: skip the record slots consumed by the long name
	// chain of the previously returned entry. The short name record may
	// have ended exactly at the sector boundary which moves the scan to
	// byte 0 of the following sector.
	if c.lnFlags&lnExists != 0 {
		if c.lnFlags&(lnCrossesSector|lnLastSectorEntry) != 0 {
			if err := fs.bumpSector(c); err != nil {
				return DirEntry{}, err
			}
			c.offset = c.snPosNext + entrySize
		} else {
			c.offset = c.snPosCurrent + entrySize
		}
		c.lnFlags = 0
		c.snPosCurrent = 0
		c.snPosNext = 0
	}

	var currentBuffer, nextBuffer [maxSectorSize]byte
	current := currentBuffer[:sectorSize]
	next := nextBuffer[:sectorSize]

	for {
		for ; c.sectorInCluster < fs.info.SectorsPerCluster; c.sectorInCluster++ {
			if err := fs.readSector(fs.dataSector(c.cluster, c.sectorInCluster), current); err != nil {
				return DirEntry{}, err
			}

			for ; c.offset+entrySize <= sectorSize; c.offset += entrySize {
				switch current[c.offset] {
				case endOfEntries:
					// All following record slots of the directory are
					// guaranteed to be unused as well.
					return DirEntry{}, checkpoint.From(ErrEndOfDirectory)
				case deletedEntry:
					continue
				}

				if current[c.offset+11]&attrLongNameMask == attrLongName {
					return fs.nextLongEntry(c, current, next)
				}

				// Record without a long name chain: the short name serves
				// as both names.
				entry, err := fs.buildEntry(c.cluster, c.sectorInCluster, current, c.offset, nil)
				if err != nil {
					return DirEntry{}, err
				}
				c.offset += entrySize
				return entry, nil
			}
			c.offset = 0
		}
		c.sectorInCluster = 0

		nextCluster, err := fs.nextCluster(c.cluster)
		if err != nil {
			return DirEntry{}, err
		}
		if nextCluster.IsEOF() {
			return DirEntry{}, checkpoint.From(ErrEndOfDirectory)
		}
		if !nextCluster.IsNextCluster() {
			return DirEntry{}, checkpoint.Wrap(fmt.Errorf("directory chain links to invalid cluster %#x", nextCluster.Value()), ErrCorruptEntry)
		}
		c.cluster = nextCluster
	}
}

// nextLongEntry decodes the long name chain starting at the cursor offset
// together with its short name record, which may sit inside of the following
// physical sector.
func (fs *Fs) nextLongEntry(c *Cursor, current, next []byte) (DirEntry, error) {
	sectorSize := fs.info.SectorSize
	offset := c.offset

	// Scanning forward, the first fragment encountered has to be the last
	// logical fragment of the chain.
	if current[offset]&lastLongEntry == 0 {
		return DirEntry{}, checkpoint.Wrap(fmt.Errorf("long name chain does not begin with its last fragment"), ErrCorruptEntry)
	}

	count := uint16(current[offset] & longOrdinalMask)
	if count == 0 || count > maxLongEntries {
		return DirEntry{}, checkpoint.Wrap(fmt.Errorf("invalid long name fragment count %d", count), ErrCorruptEntry)
	}

	// The short name record sits count record slots behind the chain start.
	snPos := offset + count*entrySize

	flags := lnExists
	if snPos > sectorSize {
		flags |= lnCrossesSector
	} else if snPos == sectorSize {
		flags |= lnLastSectorEntry
	}

	var name []byte
	var err error

	if flags&(lnCrossesSector|lnLastSectorEntry) == 0 {
		// Chain and short name record are both inside of the current
		// sector.
		if current[snPos+11]&attrLongNameMask == attrLongName {
			return DirEntry{}, checkpoint.Wrap(fmt.Errorf("short name position holds a long name fragment"), ErrCorruptEntry)
		}
		if current[snPos-entrySize]&longOrdinalMask != 1 {
			return DirEntry{}, checkpoint.Wrap(fmt.Errorf("fragment 1 is not adjacent to the short name record"), ErrCorruptEntry)
		}

		if name, err = appendLongName(nil, current, int(snPos)-entrySize, int(offset)); err != nil {
			return DirEntry{}, err
		}

		c.lnFlags = flags
		c.snPosCurrent = snPos
		c.snPosNext = 0
		return fs.buildEntry(c.cluster, c.sectorInCluster, current, snPos, name)
	}

	// The short name record is inside of the following physical sector,
	// which may already belong to the next cluster of the directory chain.
	recordCluster := c.cluster
	recordSector := c.sectorInCluster + 1
	if c.sectorInCluster >= fs.info.SectorsPerCluster-1 {
		nextCluster, err := fs.nextCluster(c.cluster)
		if err != nil {
			return DirEntry{}, err
		}
		if !nextCluster.IsNextCluster() {
			return DirEntry{}, checkpoint.Wrap(fmt.Errorf("long name chain ends with the directory"), ErrCorruptEntry)
		}
		recordCluster = nextCluster
		recordSector = 0
	}
	if err := fs.readSector(fs.dataSector(recordCluster, recordSector), next); err != nil {
		return DirEntry{}, err
	}

	snPosNext := snPos - sectorSize
	if snPosNext+entrySize > sectorSize {
		// The chain would reach beyond the following sector.
		return DirEntry{}, checkpoint.Wrap(fmt.Errorf("long name chain spans more than two sectors"), ErrCorruptEntry)
	}
	if next[snPosNext+11]&attrLongNameMask == attrLongName {
		return DirEntry{}, checkpoint.Wrap(fmt.Errorf("short name position holds a long name fragment"), ErrCorruptEntry)
	}

	if flags&lnCrossesSector != 0 {
		// Fragments in both sectors. Fragment 1 sits directly before the
		// short name record in the following sector.
		if next[snPosNext-entrySize]&longOrdinalMask != 1 {
			return DirEntry{}, checkpoint.Wrap(fmt.Errorf("fragment 1 is not adjacent to the short name record"), ErrCorruptEntry)
		}

		if name, err = appendLongName(nil, next, int(snPosNext)-entrySize, 0); err != nil {
			return DirEntry{}, err
		}
		if name, err = appendLongName(name, current, int(sectorSize)-entrySize, int(offset)); err != nil {
			return DirEntry{}, err
		}
	} else {
		// The chain fills the current sector exactly, the short name
		// record is byte 0 of the following sector.
		if current[sectorSize-entrySize]&longOrdinalMask != 1 {
			return DirEntry{}, checkpoint.Wrap(fmt.Errorf("fragment 1 is not adjacent to the short name record"), ErrCorruptEntry)
		}

		if name, err = appendLongName(nil, current, int(sectorSize)-entrySize, int(offset)); err != nil {
			return DirEntry{}, err
		}
	}

	c.lnFlags = flags
	c.snPosCurrent = snPos
	c.snPosNext = snPosNext
	return fs.buildEntry(recordCluster, recordSector, next, snPosNext, name)
}

// buildEntry decodes the short name record at the given offset of buffer
// into a DirEntry. cluster and sectorInCluster address the sector the record
// physically sits in. longName is nil for records without a long name chain,
// in which case the decoded short name serves as long name too.
func (fs *Fs) buildEntry(cluster fatEntry, sectorInCluster uint8, buffer []byte, snOffset uint16, longName []byte) (DirEntry, error) {
	entry := DirEntry{
		cluster:         cluster,
		sectorInCluster: sectorInCluster,
		offset:          snOffset,
	}
	copy(entry.raw[:], buffer[snOffset:snOffset+entrySize])

	if err := binary.Read(bytes.NewReader(entry.raw[:]), binary.LittleEndian, &entry.EntryHeader); err != nil {
		return DirEntry{}, checkpoint.From(err)
	}

	entry.ShortName = decodeShortName(entry.raw[:])
	if longName == nil {
		entry.ExtendedName = entry.ShortName
	} else {
		entry.ExtendedName = string(longName)
	}
	return entry, nil
}

// bumpSector moves the cursor to the first byte of the next physical sector
// of the directory, following the cluster chain when the current sector is
// the last of its cluster.
func (fs *Fs) bumpSector(c *Cursor) error {
	if c.sectorInCluster+1 < fs.info.SectorsPerCluster {
		c.sectorInCluster++
		c.offset = 0
		return nil
	}

	nextCluster, err := fs.nextCluster(c.cluster)
	if err != nil {
		return err
	}
	if !nextCluster.IsNextCluster() {
		return checkpoint.Wrap(fmt.Errorf("directory chain ends unexpectedly"), ErrCorruptEntry)
	}
	c.cluster = nextCluster
	c.sectorInCluster = 0
	c.offset = 0
	return nil
}

// entryKind filters what findEntry matches.
type entryKind uint8

const (
	anyEntry entryKind = iota
	dirEntry
	fileEntry
)

// findEntry scans the directory starting at the given cluster for an entry
// with the given name. The match is case-sensitive against the long name,
// which equals the short name for records without a long name chain.
// Volume label records never match. An exhausted scan maps to ErrDirNotFound
// or ErrFileNotFound depending on kind.
func (fs *Fs) findEntry(cluster fatEntry, name string, kind entryKind) (DirEntry, error) {
	if !isLegalName(name) {
		return DirEntry{}, checkpoint.From(ErrInvalidName)
	}

	notFound := ErrFileNotFound
	if kind == dirEntry {
		notFound = ErrDirNotFound
	}

	cursor := fs.newCursor(cluster)
	for {
		entry, err := fs.nextEntry(&cursor)
		if err != nil {
			if errors.Is(err, ErrEndOfDirectory) {
				return DirEntry{}, checkpoint.Wrap(err, notFound)
			}
			return DirEntry{}, err
		}

		if entry.Attribute&AttrVolumeID != 0 {
			continue
		}
		if entry.ExtendedName != name {
			continue
		}

		switch kind {
		case dirEntry:
			if !entry.IsDir() {
				continue
			}
		case fileEntry:
			if entry.IsDir() {
				continue
			}
		}
		return entry, nil
	}
}
