// Command fat32 lists directories and prints files of a FAT32 image.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/blockfs/fat32"
	flag "github.com/spf13/pflag"
)

var (
	lsPath     = flag.String("ls", "/", "list the directory at the given path")
	catPath    = flag.String("cat", "", "print the content of the file at the given path")
	showHidden = flag.Bool("hidden", false, "include hidden entries in listings")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: fat32 [flags] <image>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	image, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer image.Close()

	volume, err := fat32.New(image)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *catPath != "" {
		err = cat(volume, *catPath)
	} else {
		err = list(volume, *lsPath)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// navigate walks the path one segment at a time, starting at the root
// directory.
func navigate(volume *fat32.Fs, path string) (fat32.Dir, error) {
	dir := volume.RootDir()
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		if segment == "" {
			continue
		}
		if err := volume.ChangeDir(&dir, segment); err != nil {
			return dir, err
		}
	}
	return dir, nil
}

func list(volume *fat32.Fs, path string) error {
	dir, err := navigate(volume, path)
	if err != nil {
		return err
	}

	entries, err := volume.ListDir(&dir)
	if err != nil {
		return err
	}

	fmt.Printf("volume %q, directory %s\n", volume.Label(), path)
	for _, entry := range entries {
		if entry.Attribute&fat32.AttrVolumeID != 0 {
			continue
		}
		if entry.Attribute&fat32.AttrHidden != 0 && !*showHidden {
			continue
		}

		info := entry.FileInfo()
		kind := "<FILE>"
		if info.IsDir() {
			kind = "<DIR> "
		}
		fmt.Printf("%s  %10d  %s  %-30s  %s\n",
			info.ModTime().Format("2006-01-02 15:04:05"),
			info.Size(), kind, info.Name(), entry.ShortName)
	}
	return nil
}

func cat(volume *fat32.Fs, path string) error {
	trimmed := strings.Trim(path, "/")
	parent, name := "", trimmed
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		parent, name = trimmed[:i], trimmed[i+1:]
	}

	dir, err := navigate(volume, parent)
	if err != nil {
		return err
	}
	return volume.StreamFile(&dir, name, os.Stdout)
}
