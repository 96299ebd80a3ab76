package fat32

import (
	"fmt"
	"io"

	"github.com/blockfs/fat32/checkpoint"
)

// StreamFile looks up the named file in dir and writes its content to w in
// cluster and sector order. The end of the file is detected by the zero fill
// of its last sector: a zero byte ends the stream only when every remaining
// byte of its sector is zero as well, an embedded zero byte surrounded by
// content is passed through literally. A nil return means the whole file was
// streamed.
//
// This streaming mode reproduces raw text content without relying on the
// size field of the entry; use the afero file API for size-exact reads.
func (fs *Fs) StreamFile(dir *Dir, name string, w io.Writer) error {
	entry, err := fs.findEntry(dir.FirstCluster, name, fileEntry)
	if err != nil {
		return err
	}
	return fs.streamClusters(entry.FirstCluster(), w)
}

func (fs *Fs) streamClusters(cluster fatEntry, w io.Writer) error {
	// A file without content stores no first cluster. Values 0 and 1 never
	// address data clusters, so there is nothing to stream.
	if !cluster.IsNextCluster() {
		return nil
	}

	buffer := make([]byte, fs.info.SectorSize)

	for {
		for sectorInCluster := uint8(0); sectorInCluster < fs.info.SectorsPerCluster; sectorInCluster++ {
			if err := fs.readSector(fs.dataSector(cluster, sectorInCluster), buffer); err != nil {
				return err
			}

			// Find the end of the content within this sector. Everything
			// after the last non-zero byte is zero fill.
			end := len(buffer)
			for end > 0 && buffer[end-1] == 0 {
				end--
			}

			if _, err := w.Write(buffer[:end]); err != nil {
				return checkpoint.Wrap(err, ErrReadFile)
			}

			// A zero tail inside of the sector is the end of the file.
			if end < len(buffer) {
				return nil
			}
		}

		next, err := fs.nextCluster(cluster)
		if err != nil {
			return err
		}
		if next.IsEOF() {
			return nil
		}
		if !next.IsNextCluster() {
			return checkpoint.Wrap(fmt.Errorf("file chain links to invalid cluster %#x", next.Value()), ErrCorruptEntry)
		}
		cluster = next
	}
}
