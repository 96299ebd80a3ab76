package fat32

import (
	"io"
	"io/fs"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGoFs(t *testing.T) {
	goFs, err := NewGoFS(buildTree().reader())
	if err != nil {
		t.Fatalf("NewGoFS() error = %v", err)
	}

	t.Run("read a file through fs.File", func(t *testing.T) {
		file, err := goFs.Open("Documents/notes.txt")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if string(content) != "hello fat32\n" {
			t.Errorf("ReadAll() = %q, want %q", content, "hello fat32\n")
		}

		info, err := file.Stat()
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if info.Name() != "notes.txt" || info.Size() != 12 {
			t.Errorf("Stat() = %v (%v bytes), want notes.txt (12 bytes)", info.Name(), info.Size())
		}
	})

	t.Run("list a directory through fs.ReadDirFile", func(t *testing.T) {
		file, err := goFs.Open("/")
		if err != nil {
			t.Fatalf("Open(/) error = %v", err)
		}
		defer file.Close()

		dirFile, ok := file.(fs.ReadDirFile)
		if !ok {
			t.Fatalf("Open(/) did not return an fs.ReadDirFile")
		}

		entries, err := dirFile.ReadDir(-1)
		if err != nil {
			t.Fatalf("ReadDir(-1) error = %v", err)
		}

		var names []string
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		want := []string{"Documents", "REPORT.TXT"}
		if diff := cmp.Diff(want, names); diff != "" {
			t.Errorf("unexpected names: diff (-want +got):\n%s", diff)
		}

		if !entries[0].IsDir() || entries[0].Type() != fs.ModeDir {
			t.Errorf("entry %q is not reported as directory", entries[0].Name())
		}
	})
}
