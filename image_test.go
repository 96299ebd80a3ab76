package fat32

import (
	"bytes"
	"encoding/binary"
)

// Test volumes are built in memory: one reserved sector (the boot sector),
// a single FAT sector and a small data region. With 512 byte sectors one FAT
// sector indexes 128 clusters which is plenty for tests.
const (
	testSectorSize  = 512
	testFATSectors  = 1
	testMaxClusters = 64

	testEndOfChain = 0x0FFFFFFF
)

// testImage composes a minimal FAT32 volume.
type testImage struct {
	secPerClus uint8
	fat        [testMaxClusters]uint32
	clusters   map[uint32][]byte
}

func newTestImage(secPerClus uint8) *testImage {
	img := &testImage{
		secPerClus: secPerClus,
		clusters:   map[uint32][]byte{},
	}
	// Media descriptor copy and end of chain marker of the root directory.
	img.fat[0] = 0x0FFFFFF8
	img.fat[1] = 0xFFFFFFFF
	img.fat[2] = testEndOfChain
	return img
}

func (img *testImage) clusterSize() int {
	return testSectorSize * int(img.secPerClus)
}

// cluster returns the content buffer of the given cluster, allocating it
// zero filled on first use.
func (img *testImage) cluster(index uint32) []byte {
	if _, ok := img.clusters[index]; !ok {
		img.clusters[index] = make([]byte, img.clusterSize())
		if img.fat[index] == 0 {
			img.fat[index] = testEndOfChain
		}
	}
	return img.clusters[index]
}

// chain links the given clusters in order and terminates the chain after
// the last one.
func (img *testImage) chain(indexes ...uint32) {
	for i, index := range indexes {
		img.cluster(index)
		if i+1 < len(indexes) {
			img.fat[index] = indexes[i+1]
		} else {
			img.fat[index] = testEndOfChain
		}
	}
}

// write spreads content over the given clusters and links them as one
// chain. Used for directory record streams and file contents alike.
func (img *testImage) write(content []byte, indexes ...uint32) {
	img.chain(indexes...)
	for _, index := range indexes {
		n := copy(img.cluster(index), content)
		content = content[n:]
	}
}

// bytes serializes the volume.
func (img *testImage) bytes() []byte {
	maxCluster := uint32(2)
	for index := range img.clusters {
		if index > maxCluster {
			maxCluster = index
		}
	}

	totalSectors := uint32(1+testFATSectors) + (maxCluster-1)*uint32(img.secPerClus)
	buffer := make([]byte, int(totalSectors)*testSectorSize)

	// Boot sector.
	boot := buffer[:testSectorSize]
	copy(boot[0:], []byte{0xEB, 0x3C, 0x90})
	copy(boot[3:], "MSWIN4.1")
	binary.LittleEndian.PutUint16(boot[11:], testSectorSize)
	boot[13] = img.secPerClus
	binary.LittleEndian.PutUint16(boot[14:], 1) // reserved sectors
	boot[16] = 1                                // number of FATs
	boot[21] = 0xF8                             // media descriptor
	binary.LittleEndian.PutUint32(boot[32:], totalSectors)
	binary.LittleEndian.PutUint32(boot[36:], testFATSectors)
	binary.LittleEndian.PutUint32(boot[44:], 2) // root cluster
	boot[66] = 0x29
	copy(boot[71:], "TESTVOL    ")
	copy(boot[82:], "FAT32   ")
	binary.LittleEndian.PutUint16(boot[510:], 0xAA55)

	// FAT.
	fat := buffer[testSectorSize : 2*testSectorSize]
	for i, value := range img.fat {
		binary.LittleEndian.PutUint32(fat[i*4:], value)
	}

	// Data region: cluster 2 starts right after the FAT.
	for index, content := range img.clusters {
		offset := (2 + (index-2)*uint32(img.secPerClus)) * testSectorSize
		copy(buffer[offset:], content)
	}

	return buffer
}

func (img *testImage) reader() *bytes.Reader {
	return bytes.NewReader(img.bytes())
}

func (img *testImage) open() (*Fs, error) {
	return New(img.reader())
}

// shortEntry builds one short name record. name must already be in the
// padded 11 byte 8.3 layout, for example "REPORT  TXT".
func shortEntry(name string, attr byte, cluster uint32, size uint32) []byte {
	record := make([]byte, entrySize)
	copy(record, "           ")
	copy(record, name)
	record[11] = attr
	binary.LittleEndian.PutUint16(record[20:], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(record[26:], uint16(cluster))
	binary.LittleEndian.PutUint32(record[28:], size)
	return record
}

// deletedRecord builds a record marked as deleted.
func deletedRecord() []byte {
	record := shortEntry("GONE    TXT", AttrArchive, 0, 0)
	record[0] = deletedEntry
	return record
}

// longNameChain builds the on-disk long name chain for name followed by its
// short name record: the fragment holding the tail of the name comes first
// and carries the lastLongEntry flag, the fragment with sequence number 1
// sits directly before the short record.
func longNameChain(name string, short []byte) []byte {
	chunks := splitLongName(name)

	var result []byte
	for i := len(chunks) - 1; i >= 0; i-- {
		sequence := byte(i + 1)
		if i == len(chunks)-1 {
			sequence |= lastLongEntry
		}
		result = append(result, longNameFragment(sequence, chunks[i])...)
	}
	return append(result, short...)
}

// splitLongName splits a name into the 13 character chunks of its
// fragments.
func splitLongName(name string) []string {
	var chunks []string
	for len(name) > 13 {
		chunks = append(chunks, name[:13])
		name = name[13:]
	}
	return append(chunks, name)
}

// longNameFragment encodes one 13 character chunk as UCS-2 little endian
// with 0x0000 terminator and 0xFFFF fill, spread over the three character
// windows of the fragment.
func longNameFragment(sequence byte, chunk string) []byte {
	record := make([]byte, entrySize)
	record[0] = sequence
	record[11] = attrLongName

	encoded := make([]byte, 26)
	for i := 0; i < 13; i++ {
		switch {
		case i < len(chunk):
			encoded[i*2] = chunk[i]
		case i == len(chunk):
			// terminator, already zero
		default:
			encoded[i*2] = 0xFF
			encoded[i*2+1] = 0xFF
		}
	}

	copy(record[1:11], encoded[0:10])
	copy(record[14:26], encoded[10:22])
	copy(record[28:32], encoded[22:26])
	return record
}

// dotEntries builds the "." and ".." records every subdirectory starts
// with. parentCluster is 0 when the parent is the root directory.
func dotEntries(self, parentCluster uint32) []byte {
	dot := shortEntry(".          ", AttrDirectory, self, 0)
	dotDot := shortEntry("..         ", AttrDirectory, parentCluster, 0)
	return append(dot, dotDot...)
}
