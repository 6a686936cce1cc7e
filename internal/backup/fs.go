package backup

import "os"

// Filesystem is the subset of file operations the backup job performs.
// Injected so rotation behavior is testable without touching disk.
type Filesystem interface {
	MkdirAll(path string, perm os.FileMode) error
	WriteFile(path string, data []byte, perm os.FileMode) error
	// ListFiles returns the names (not paths) of regular files in dir.
	// A missing directory yields an empty list.
	ListFiles(dir string) ([]string, error)
	Remove(path string) error
}

// OSFilesystem implements Filesystem on the real disk.
type OSFilesystem struct{}

func (OSFilesystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFilesystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (OSFilesystem) ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (OSFilesystem) Remove(path string) error {
	return os.Remove(path)
}

var _ Filesystem = OSFilesystem{}
