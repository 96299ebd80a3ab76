// File model contains the structs and constants which match the direct structures of the FAT filesystem.

package fat32

// Directory entry attribute bits.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20

	// attrLongName is the composite attribute value reserved for long
	// filename entries.
	attrLongName     = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
	attrLongNameMask = attrLongName | AttrDirectory | AttrArchive
)

const (
	// entrySize is the size of every directory record on disk.
	entrySize = 32

	// endOfEntries as first byte of a record marks the record and all
	// following records of the directory as unused.
	endOfEntries = 0x00

	// deletedEntry as first byte marks a record as deleted.
	deletedEntry = 0xE5

	// lastLongEntry is set in the sequence byte of the long name fragment
	// which is stored first on disk (and holds the tail of the name).
	lastLongEntry = 0x40

	// longOrdinalMask extracts the sequence number from the sequence byte of
	// a long name fragment. Valid sequence numbers are 1..maxLongEntries.
	longOrdinalMask = 0x3F

	// maxLongEntries is the maximum number of fragments of one long name.
	maxLongEntries = 20

	// maxLongNameLength is the maximum character count of a decoded long
	// name. Anything bigger is treated as corruption, not truncated.
	maxLongNameLength = 255
)

// BPB is the BIOS Parameter Block at the beginning of the boot sector.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	FATSpecificData     [54]byte
}

// FAT32SpecificData is the FAT32 interpretation of BPB.FATSpecificData.
type FAT32SpecificData struct {
	FATSize          uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      fatEntry
	FSInfo           uint16
	BkBootSector     uint16
	Reserved         [12]byte
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// EntryHeader is a short name directory record.
type EntryHeader struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// FirstCluster assembles the first cluster index of the entry from its two
// 16 bit halves.
func (h *EntryHeader) FirstCluster() fatEntry {
	return fatEntry(uint32(h.FirstClusterHI)<<16 | uint32(h.FirstClusterLO))
}

// IsDir reports whether the entry describes a directory.
func (h *EntryHeader) IsDir() bool {
	return h.Attribute&AttrDirectory == AttrDirectory
}

// LongFilenameEntry is one fragment of a long filename chain.
// A chain precedes its short name record in reversed order: the fragment
// holding the end of the name comes first and carries lastLongEntry in
// Sequence, the fragment with sequence number 1 is stored directly before the
// short name record.
type LongFilenameEntry struct {
	Sequence  byte
	First     [5]uint16
	Attribute byte
	EntryType byte
	Checksum  byte
	Second    [6]uint16
	Zero      [2]byte
	Third     [2]uint16
}

// ExtendedEntryHeader is an EntryHeader enriched by the decoded names.
// ExtendedName always holds the long name of the entry; for records without
// a long name chain it equals the decoded short name.
type ExtendedEntryHeader struct {
	EntryHeader
	ExtendedName string
}
