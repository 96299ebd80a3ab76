package fat32

import (
	"strings"

	"github.com/blockfs/fat32/checkpoint"
)

// pathSeparator is used for the accumulated parent paths and doubles as the
// name of the root directory.
const pathSeparator = "/"

// Offsets of the first cluster halves of the ".." record within the first
// sector of a directory. The ".." record is always the second record slot.
const (
	dotDotClusterHI = entrySize + 20
	dotDotClusterLO = entrySize + 26
)

// Dir represents the current directory for navigation. The root directory
// is the unique Dir whose names equal the path separator and whose parent
// paths are empty.
type Dir struct {
	FirstCluster fatEntry

	// Name is the long name of the directory, ShortName its 8.3 name.
	Name      string
	ShortName string

	// LongParentPath and ShortParentPath accumulate the slash separated
	// path of all ancestors while navigating.
	LongParentPath  string
	ShortParentPath string
}

// RootDir returns a Dir set to the root directory of the volume.
func (fs *Fs) RootDir() Dir {
	return Dir{
		FirstCluster: fs.info.RootCluster,
		Name:         pathSeparator,
		ShortName:    pathSeparator,
	}
}

// setToRoot resets dir to the root directory.
func (fs *Fs) setToRoot(dir *Dir) {
	*dir = fs.RootDir()
}

// ChangeDir sets dir to the named child directory, or to its parent for
// "..". "." is a no-op. Only single level steps are supported, name must
// not contain a path. The match against the child entries is case-sensitive
// on the long name (the short name for entries without a long name).
func (fs *Fs) ChangeDir(dir *Dir, name string) error {
	if name == "." {
		return nil
	}
	if name == ".." {
		return fs.changeToParent(dir)
	}

	entry, err := fs.findEntry(dir.FirstCluster, name, dirEntry)
	if err != nil {
		return err
	}

	dir.LongParentPath += dir.Name
	dir.ShortParentPath += dir.ShortName
	// Only append a separator when the current directory is not the root.
	if dir.Name != pathSeparator {
		dir.LongParentPath += pathSeparator
	}
	if dir.ShortName != pathSeparator {
		dir.ShortParentPath += pathSeparator
	}

	dir.Name = entry.ExtendedName
	dir.ShortName = entry.ShortName
	dir.FirstCluster = entry.FirstCluster()
	return nil
}

// changeToParent sets dir to its parent directory. The parent's first
// cluster is stored in the ".." record of the directory itself; the names of
// the grandparent level are recovered from the accumulated parent paths.
func (fs *Fs) changeToParent(dir *Dir) error {
	if dir.FirstCluster == fs.info.RootCluster {
		// The root directory is its own parent.
		return nil
	}

	buffer := make([]byte, fs.info.SectorSize)
	if err := fs.readSector(fs.dataSector(dir.FirstCluster, 0), buffer); err != nil {
		return err
	}

	parentCluster := fatEntry(
		uint32(buffer[dotDotClusterHI+1])<<24 |
			uint32(buffer[dotDotClusterHI])<<16 |
			uint32(buffer[dotDotClusterLO+1])<<8 |
			uint32(buffer[dotDotClusterLO]))

	// Cluster 0 in the ".." record means the parent is the root directory.
	if parentCluster == 0 {
		fs.setToRoot(dir)
		return nil
	}

	dir.Name, dir.LongParentPath = popLastSegment(dir.LongParentPath)
	dir.ShortName, dir.ShortParentPath = popLastSegment(dir.ShortParentPath)
	dir.FirstCluster = parentCluster
	return nil
}

// popLastSegment splits the last slash separated segment off an accumulated
// parent path and returns it together with the shortened path.
func popLastSegment(path string) (segment, rest string) {
	trimmed := strings.TrimSuffix(path, pathSeparator)
	i := strings.LastIndex(trimmed, pathSeparator)
	if i < 0 {
		return trimmed, ""
	}
	return trimmed[i+1:], trimmed[:i+1]
}

// ListDir returns all entries of the directory in on-disk order.
func (fs *Fs) ListDir(dir *Dir) ([]DirEntry, error) {
	entries, err := fs.readDir(dir.FirstCluster)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}
	return entries, nil
}
