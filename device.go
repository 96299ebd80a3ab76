package fat32

import (
	"encoding/binary"
	"io"

	"github.com/blockfs/fat32/checkpoint"
)

// Device is the sector source every volume operation reads through.
// Implementations are expected to be synchronous and to deliver exactly
// len(dst) bytes of the sector at the given address. Retrying on transient
// media errors is up to the implementation, the volume never retries.
//
// Generated mock using mockgen:
//  mockgen -source=device.go -destination=device_mock.go -package fat32
type Device interface {
	// ReadSector loads the sector at the given address into dst.
	// The sector size is defined by len(dst).
	ReadSector(address uint32, dst []byte) error
}

// readSeekerDevice adapts a plain image file (or any io.ReadSeeker) to the
// Device interface.
type readSeekerDevice struct {
	reader     io.ReadSeeker
	sectorSize uint16
}

func (d *readSeekerDevice) ReadSector(address uint32, dst []byte) error {
	if _, err := d.reader.Seek(int64(address)*int64(d.sectorSize), io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(d.reader, dst)
	return err
}

const (
	bootSignatureOffset = 510

	mbrPartitionTable = 446
	mbrPartitionSize  = 16

	partTypeFat32    = 0x0B
	partTypeFat32LBA = 0x0C
)

// FindBootSector locates the boot sector of the first FAT32 volume on the
// device. A device that starts directly with a boot sector (a so called
// superfloppy image) yields address 0. Otherwise the master boot record is
// searched for a FAT32 partition and the partition's start address is
// returned.
func FindBootSector(device Device, sectorSize uint16) (uint32, error) {
	buffer := make([]byte, sectorSize)
	if err := device.ReadSector(0, buffer); err != nil {
		return 0, checkpoint.Wrap(err, ErrReadSector)
	}

	if binary.LittleEndian.Uint16(buffer[bootSignatureOffset:]) != 0xAA55 {
		return 0, checkpoint.From(ErrNotFat32)
	}

	// A valid x86 jump at the very beginning means sector 0 is already the
	// boot sector.
	if (buffer[0] == 0xEB && buffer[2] == 0x90) || buffer[0] == 0xE9 {
		return 0, nil
	}

	for i := 0; i < 4; i++ {
		entry := buffer[mbrPartitionTable+i*mbrPartitionSize:]
		partType := entry[4]
		if partType != partTypeFat32 && partType != partTypeFat32LBA {
			continue
		}
		return binary.LittleEndian.Uint32(entry[8:]), nil
	}

	return 0, checkpoint.From(ErrNotFat32)
}
