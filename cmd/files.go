package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"scrub/pkg/imgutil"
)

// collectFiles loads the files named by args into memory. Directories
// are walked; files discovered by the walk are silently skipped when
// unsupported, while explicitly named files always pass through so the
// queue can report the rejection. Files over the size ceiling are
// refused here, before the core ever sees them.
func collectFiles(args []string) ([]imgutil.SourceFile, []string, error) {
	var files []imgutil.SourceFile
	var refused []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, nil, err
		}

		if !info.IsDir() {
			f, msg, err := loadFile(arg)
			if err != nil {
				return nil, nil, err
			}
			if msg != "" {
				refused = append(refused, msg)
				continue
			}
			files = append(files, f)
			continue
		}

		root, err := filepath.Abs(arg)
		if err != nil {
			return nil, nil, err
		}
		err = fs.WalkDir(os.DirFS(root), ".", func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			full := filepath.Join(root, path)
			if !imgutil.IsSupported(full, "") {
				return nil
			}
			f, msg, err := loadFile(full)
			if err != nil {
				return err
			}
			if msg != "" {
				refused = append(refused, msg)
				return nil
			}
			files = append(files, f)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	return files, refused, nil
}

func loadFile(path string) (imgutil.SourceFile, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return imgutil.SourceFile{}, "", err
	}
	if info.Size() > imgutil.MaxFileBytes {
		return imgutil.SourceFile{}, fmt.Sprintf("%s: exceeds the 50MB limit", filepath.Base(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return imgutil.SourceFile{}, "", err
	}

	declared := ""
	if kind, err := imgutil.SniffFile(path); err == nil {
		declared = kind.MIME()
	}

	return imgutil.SourceFile{
		Name:         filepath.Base(path),
		DeclaredType: declared,
		Data:         data,
	}, "", nil
}
