package source

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir walks a plans directory and discovers every plan file. Hidden
// directories are skipped and unreadable entries are ignored. A missing
// directory yields no files and no error.
func ScanDir(plansDir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(plansDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(plansDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		name := d.Name()
		if d.IsDir() {
			if path != plansDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		format, ferr := FormatFromPath(path)
		if ferr != nil {
			return nil
		}

		files = append(files, DiscoveredFile{
			Path:   path,
			Name:   strings.TrimSuffix(name, filepath.Ext(name)),
			Format: format,
		})
		return nil
	})

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, err
}
