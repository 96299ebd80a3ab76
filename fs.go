package fat32

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/blockfs/fat32/checkpoint"
	"github.com/spf13/afero"
)

const (
	// maxSectorSize is the biggest sector size supported by this
	// implementation. All scratch buffers are sized accordingly at build
	// time; the geometry is validated against it while mounting.
	maxSectorSize = 4096

	// defaultSectorSize is used to read the boot sector before the real
	// sector size is known. Almost all FAT filesystems use 512.
	defaultSectorSize = 512
)

// fatEntry is one 4 byte entry of the File Allocation Table. Of the 32 bits
// only the lower 28 are used. It doubles as cluster index type.
type fatEntry uint32

// Value returns the entry with the upper 4 reserved bits masked out.
func (e fatEntry) Value() uint32 {
	return uint32(e) & 0x0FFFFFFF
}

// IsFree reports whether the entry marks a free cluster.
// A free cluster never occurs inside of a cluster chain.
func (e fatEntry) IsFree() bool {
	return e.Value() == 0
}

// IsReservedTemp reports whether the entry holds the reserved value 1.
func (e fatEntry) IsReservedTemp() bool {
	return e.Value() == 1
}

// IsNextCluster reports whether the entry points to a valid next cluster of
// a cluster chain.
func (e fatEntry) IsNextCluster() bool {
	v := e.Value()
	return v >= 2 && v <= 0xFFFFFEF
}

// IsReservedSometimes reports whether the entry is inside of the range which
// is reserved on some implementations.
func (e fatEntry) IsReservedSometimes() bool {
	v := e.Value()
	return v >= 0xFFFFFF0 && v <= 0xFFFFFF5
}

// IsReserved reports whether the entry holds the reserved value 0xFFFFFF6.
func (e fatEntry) IsReserved() bool {
	return e.Value() == 0xFFFFFF6
}

// IsBad reports whether the entry marks a bad cluster.
func (e fatEntry) IsBad() bool {
	return e.Value() == 0xFFFFFF7
}

// IsEOF reports whether the entry is an end of chain marker.
func (e fatEntry) IsEOF() bool {
	return e.Value() >= 0xFFFFFF8
}

// Info contains all information about the whole filesystem.
type Info struct {
	SectorsPerCluster uint8
	FirstDataSector   uint32
	TotalSectors      uint32
	ReservedSectors   uint16
	SectorSize        uint16
	VolumeStart       uint32
	RootCluster       fatEntry
	Label             string
}

// sectorWindow is the single cached sector all FAT lookups read through.
// The buffer is reused for every fetch, callers must not retain it.
type sectorWindow struct {
	current uint32
	valid   bool
	buffer  []byte
}

// Fs provides read access to one FAT32 volume. It implements afero.Fs
// (all mutating methods return ErrReadOnly).
type Fs struct {
	device Device
	info   Info
	sector sectorWindow
}

// New opens the FAT32 volume stored in reader.
func New(reader io.ReadSeeker) (*Fs, error) {
	return NewFromDevice(&readSeekerDevice{reader: reader, sectorSize: defaultSectorSize})
}

// NewSkipChecks opens the volume just like New but skips some of the boot
// sector validations. This may allow reading not perfectly standard
// filesystems. Use with caution!
func NewSkipChecks(reader io.ReadSeeker) (*Fs, error) {
	return newFromDevice(&readSeekerDevice{reader: reader, sectorSize: defaultSectorSize}, true)
}

// NewFromDevice opens the FAT32 volume on an arbitrary sector device.
func NewFromDevice(device Device) (*Fs, error) {
	return newFromDevice(device, false)
}

func newFromDevice(device Device, skipChecks bool) (*Fs, error) {
	fs := &Fs{device: device}
	if err := fs.initialize(skipChecks); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *Fs) initialize(skipChecks bool) error {
	bootSector, err := FindBootSector(fs.device, defaultSectorSize)
	if err != nil {
		if !skipChecks || !errors.Is(err, ErrNotFat32) {
			return err
		}
		// With skipped checks an unrecognized sector 0 is assumed to be the
		// boot sector itself.
		bootSector = 0
	}

	fs.info.SectorSize = defaultSectorSize
	fs.info.VolumeStart = bootSector
	fs.sector.buffer = make([]byte, defaultSectorSize)
	fs.sector.valid = false

	if err := fs.fetch(bootSector); err != nil {
		return err
	}

	bpb := BPB{}
	if err := binary.Read(bytes.NewReader(fs.sector.buffer), binary.LittleEndian, &bpb); err != nil {
		return checkpoint.From(err)
	}

	// Check if it is really a FAT filesystem by checking for valid jump
	// instructions.
	if !skipChecks {
		if !(bpb.BSJumpBoot[0] == 0xEB && bpb.BSJumpBoot[2] == 0x90) && bpb.BSJumpBoot[0] != 0xE9 {
			return checkpoint.Wrap(fmt.Errorf("no valid jump instructions at the beginning"), ErrNotFat32)
		}

		switch bpb.Media {
		case 0xF0, 0xF8, 0xF9, 0xFA, 0xFB, 0xFC, 0xFD, 0xFE, 0xFF:
		default:
			return checkpoint.Wrap(fmt.Errorf("invalid media value %#x", bpb.Media), ErrNotFat32)
		}
	}

	// FAT only supports 512, 1024, 2048 and 4096.
	switch bpb.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return checkpoint.Wrap(fmt.Errorf("invalid sector size %d", bpb.BytesPerSector), ErrNotFat32)
	}

	// Sectors per cluster has to be a power of two and greater than 0.
	// Also the whole cluster size should not be more than 32K.
	if bpb.SectorsPerCluster == 0 || bpb.SectorsPerCluster&(bpb.SectorsPerCluster-1) != 0 ||
		uint32(bpb.BytesPerSector)*uint32(bpb.SectorsPerCluster) > 32*1024 {
		return checkpoint.Wrap(fmt.Errorf("invalid sectors per cluster %d", bpb.SectorsPerCluster), ErrNotFat32)
	}

	// The reserved sector count of a FAT32 volume is never 0, typically 32.
	if bpb.ReservedSectorCount == 0 {
		return checkpoint.Wrap(fmt.Errorf("invalid reserved sector count"), ErrNotFat32)
	}

	// A FAT32 volume keeps its root directory in the data region, the
	// legacy root directory fields must be zero.
	if bpb.RootEntryCount != 0 || bpb.FATSize16 != 0 || bpb.TotalSectors16 != 0 {
		return checkpoint.Wrap(fmt.Errorf("volume is not FAT32"), ErrNotFat32)
	}

	fat32Data := FAT32SpecificData{}
	if err := binary.Read(bytes.NewReader(bpb.FATSpecificData[:]), binary.LittleEndian, &fat32Data); err != nil {
		return checkpoint.From(err)
	}

	if bootSector != 0 && bpb.BytesPerSector != defaultSectorSize {
		return checkpoint.Wrap(fmt.Errorf("partitioned volumes with %d byte sectors are not supported", bpb.BytesPerSector), ErrNotFat32)
	}

	fs.info.SectorSize = bpb.BytesPerSector
	fs.info.SectorsPerCluster = bpb.SectorsPerCluster
	fs.info.ReservedSectors = bpb.ReservedSectorCount
	fs.info.TotalSectors = bpb.TotalSectors32
	fs.info.RootCluster = fat32Data.RootCluster
	fs.info.Label = strings.TrimRight(string(fat32Data.BSVolumeLabel[:]), " ")
	fs.info.FirstDataSector = bootSector + uint32(bpb.ReservedSectorCount) +
		uint32(bpb.NumFATs)*fat32Data.FATSize

	if d, ok := fs.device.(*readSeekerDevice); ok {
		d.sectorSize = bpb.BytesPerSector
	}

	// The boot sector was read with the default size, from now on the real
	// sector size applies.
	fs.sector.buffer = make([]byte, fs.info.SectorSize)
	fs.sector.valid = false

	return nil
}

// readSector loads the sector at the given address into dst, bypassing the
// sector window.
func (fs *Fs) readSector(address uint32, dst []byte) error {
	if err := fs.device.ReadSector(address, dst); err != nil {
		return checkpoint.Wrap(err, ErrReadSector)
	}
	return nil
}

// fetch loads a specific single sector of the filesystem into the sector
// window. Fetching the same sector twice only reads once.
func (fs *Fs) fetch(sector uint32) error {
	if fs.sector.valid && sector == fs.sector.current {
		return nil
	}

	if err := fs.readSector(sector, fs.sector.buffer); err != nil {
		fs.sector.valid = false
		return err
	}

	fs.sector.current = sector
	fs.sector.valid = true
	return nil
}

// dataSector computes the physical sector address of a sector inside of a
// cluster of the data region.
func (fs *Fs) dataSector(cluster fatEntry, sectorInCluster uint8) uint32 {
	return fs.info.FirstDataSector +
		(cluster.Value()-2)*uint32(fs.info.SectorsPerCluster) +
		uint32(sectorInCluster)
}

// nextCluster resolves the FAT chain successor of the given cluster.
// The returned entry may be an end of chain marker, check with IsEOF.
func (fs *Fs) nextCluster(cluster fatEntry) (fatEntry, error) {
	entriesPerSector := uint32(fs.info.SectorSize) / 4
	fatSector := fs.info.VolumeStart + uint32(fs.info.ReservedSectors) +
		cluster.Value()/entriesPerSector
	offset := 4 * (cluster.Value() % entriesPerSector)

	if err := fs.fetch(fatSector); err != nil {
		return 0, err
	}

	return fatEntry(binary.LittleEndian.Uint32(fs.sector.buffer[offset:])), nil
}

// readFileAt reads up to readSize bytes of the file starting at the given
// cluster, beginning at the given byte offset of the file content.
// Reads beyond fileSize are cut off.
func (fs *Fs) readFileAt(cluster fatEntry, fileSize int64, offset int64, readSize int64) ([]byte, error) {
	if offset >= fileSize {
		return nil, nil
	}
	if offset+readSize > fileSize {
		readSize = fileSize - offset
	}

	clusterSize := int64(fs.info.SectorSize) * int64(fs.info.SectorsPerCluster)

	// Follow the chain up to the cluster which contains offset.
	for skip := offset / clusterSize; skip > 0; skip-- {
		next, err := fs.nextCluster(cluster)
		if err != nil {
			return nil, err
		}
		if !next.IsNextCluster() {
			return nil, checkpoint.Wrap(fmt.Errorf("cluster chain ends inside of the file"), ErrCorruptEntry)
		}
		cluster = next
	}
	offset %= clusterSize

	result := make([]byte, 0, readSize)
	buffer := make([]byte, fs.info.SectorSize)

	for int64(len(result)) < readSize {
		sectorInCluster := uint8(offset / int64(fs.info.SectorSize))
		for ; sectorInCluster < fs.info.SectorsPerCluster && int64(len(result)) < readSize; sectorInCluster++ {
			if err := fs.readSector(fs.dataSector(cluster, sectorInCluster), buffer); err != nil {
				return result, err
			}

			from := offset % int64(fs.info.SectorSize)
			to := int64(fs.info.SectorSize)
			if rest := readSize - int64(len(result)); from+rest < to {
				to = from + rest
			}
			result = append(result, buffer[from:to]...)
			offset = 0
		}

		if int64(len(result)) == readSize {
			break
		}

		next, err := fs.nextCluster(cluster)
		if err != nil {
			return result, err
		}
		if !next.IsNextCluster() {
			return result, checkpoint.Wrap(fmt.Errorf("cluster chain ends inside of the file"), ErrCorruptEntry)
		}
		cluster = next
	}

	return result, nil
}

// readRoot reads all entries of the root directory.
func (fs *Fs) readRoot() ([]DirEntry, error) {
	return fs.readDir(fs.info.RootCluster)
}

// readDir reads all entries of the directory starting at the given cluster.
func (fs *Fs) readDir(cluster fatEntry) ([]DirEntry, error) {
	cursor := fs.newCursor(cluster)
	var entries []DirEntry
	for {
		entry, err := fs.nextEntry(&cursor)
		if errors.Is(err, ErrEndOfDirectory) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}

// Label returns the volume label stored in the boot sector.
func (fs *Fs) Label() string {
	return fs.info.Label
}

// FSType returns the filesystem type of the volume.
func (fs *Fs) FSType() string {
	return "FAT32"
}

// rootEntry is a synthetic entry describing the root directory itself.
func (fs *Fs) rootEntry() DirEntry {
	entry := DirEntry{}
	entry.Attribute = AttrDirectory
	entry.ExtendedName = "/"
	entry.ShortName = "/"
	entry.FirstClusterHI = uint16(fs.info.RootCluster.Value() >> 16)
	entry.FirstClusterLO = uint16(fs.info.RootCluster.Value())
	return entry
}

// Open opens the file or directory at the given path for reading.
// The path is resolved strictly one segment at a time starting at the root
// directory.
func (fs *Fs) Open(name string) (afero.File, error) {
	trimmed := strings.Trim(name, "/")
	if trimmed == "" {
		root := fs.rootEntry()
		return &File{
			fs:           fs,
			path:         "",
			isDirectory:  true,
			firstCluster: fs.info.RootCluster,
			stat:         root.FileInfo(),
		}, nil
	}

	segments := strings.Split(trimmed, "/")
	dir := fs.RootDir()
	for _, segment := range segments[:len(segments)-1] {
		if err := fs.ChangeDir(&dir, segment); err != nil {
			return nil, err
		}
	}

	entry, err := fs.findEntry(dir.FirstCluster, segments[len(segments)-1], anyEntry)
	if err != nil {
		return nil, err
	}

	return &File{
		fs:           fs,
		path:         name,
		isDirectory:  entry.IsDir(),
		isReadOnly:   entry.Attribute&AttrReadOnly != 0,
		isHidden:     entry.Attribute&AttrHidden != 0,
		isSystem:     entry.Attribute&AttrSystem != 0,
		firstCluster: entry.FirstCluster(),
		stat:         entry.FileInfo(),
	}, nil
}

// OpenFile is like Open. Any writing flag results in ErrReadOnly.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, checkpoint.From(ErrReadOnly)
	}
	return fs.Open(name)
}

// Stat returns the FileInfo of the file or directory at the given path.
func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return file.Stat()
}

func (fs *Fs) Name() string {
	return "FAT32"
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Remove(name string) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) RemoveAll(path string) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return checkpoint.From(ErrReadOnly)
}
