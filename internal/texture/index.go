package texture

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// extRank orders the accepted extensions for one stem. Formats that carry
// alpha win over JPEG-based ones.
var extRank = map[string]int{
	".ozj":  1,
	".jpg":  1,
	".jpeg": 1,
	".png":  2,
	".ozt":  3,
	".tga":  3,
}

// Index maps lowercase texture stems to filesystem paths.
type Index struct {
	entries map[string]string
}

// BuildIndex walks dir and every subdirectory for texture files.
func BuildIndex(dir string) *Index {
	idx := &Index{entries: make(map[string]string)}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rank, ok := extRank[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}
		stem := stemOf(path)
		if existing, exists := idx.entries[stem]; !exists || rank > extRank[strings.ToLower(filepath.Ext(existing))] {
			idx.entries[stem] = path
		}
		return nil
	})
	return idx
}

// stemOf lowercases the file name of a texture reference and drops its
// directory and extension. Backslash separators are accepted.
func stemOf(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ResolvePath returns the filesystem path for a texture name, or ("", false).
// Only the stem of name is matched, so "Data\\Skin.jpg" finds skin.ozj.
func (idx *Index) ResolvePath(texName string) (string, bool) {
	path, ok := idx.entries[stemOf(texName)]
	return path, ok
}

// Len returns the number of indexed textures.
func (idx *Index) Len() int {
	return len(idx.entries)
}
