package imports

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// resolvePath interprets file relative to the directory of the project file.
func resolvePath(projectFile string, file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(filepath.Dir(projectFile), file)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
