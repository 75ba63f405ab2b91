package util

import (
	"io/fs"
	"os"
	"path/filepath"

	common "github.com/adedayo/checkmate-riskscan/pkg"
)

var skippedDirectories = map[string]struct{}{
	".git": {}, "node_modules": {}, ".hg": {}, ".svn": {},
}

//RepositoryIndexedFile is a file found under one of the paths given to FindFiles.
//RepositoryIndex is the index of that path.
type RepositoryIndexedFile struct {
	RepositoryIndex int
	Root            string
	File            string
}

//RelativePath is the file's path relative to the root it was found under, using forward slashes
func (rif RepositoryIndexedFile) RelativePath() string {
	rel, err := filepath.Rel(rif.Root, rif.File)
	if err != nil || rel == "." {
		rel = filepath.Base(rif.File)
	}
	return filepath.ToSlash(rel)
}

//FindFiles recursively searches the directories and files contained in paths, skipping VCS metadata and node_modules
func FindFiles(paths []string) []RepositoryIndexedFile {
	out := []RepositoryIndexedFile{}
	for i, p := range paths {
		root := filepath.Clean(p)
		info, err := os.Stat(root)
		if err != nil {
			Logger().Warnf("skipping %s: %v", root, err)
			continue
		}
		if !info.IsDir() {
			out = append(out, RepositoryIndexedFile{RepositoryIndex: i, Root: filepath.Dir(root), File: root})
			continue
		}
		for _, file := range getFiles(root) {
			out = append(out, RepositoryIndexedFile{RepositoryIndex: i, Root: root, File: file})
		}
	}
	return out
}

func getFiles(dir string) (paths []string) {
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, skip := skippedDirectories[d.Name()]; skip && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	return
}

//LoadFiles reads the files found under paths into memory, keyed by their path relative to the root they were found under
func LoadFiles(paths []string) ([]common.File, error) {
	found := FindFiles(paths)
	files := make([]common.File, 0, len(found))
	for _, f := range found {
		content, err := os.ReadFile(f.File)
		if err != nil {
			return nil, err
		}
		files = append(files, common.File{
			Path:    f.RelativePath(),
			Content: content,
		})
	}
	return files, nil
}
