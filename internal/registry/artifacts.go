package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PlaylistExt is the extension of the playlist artifacts the scanner inspects.
const PlaylistExt = ".m3u8"

// Artifact is one playlist file found in the artifact directory.
type Artifact struct {
	Name    string // file stem, used as the stream name
	ModTime time.Time
}

// ArtifactSource is the filesystem view the Registry needs.
type ArtifactSource interface {
	Exists() bool
	List() ([]Artifact, error)
	ModTime(name string) (time.Time, bool)
}

// DirSource reads playlist artifacts from a directory on disk.
type DirSource struct {
	dir string
}

// NewDirSource returns a DirSource rooted at dir. The directory does not need
// to exist yet.
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Dir returns the artifact directory.
func (d *DirSource) Dir() string {
	return d.dir
}

// Exists reports whether the artifact directory exists.
func (d *DirSource) Exists() bool {
	info, err := os.Stat(d.dir)
	return err == nil && info.IsDir()
}

// List returns every playlist in the directory. Entries that disappear
// between listing and stat are skipped.
func (d *DirSource) List() ([]Artifact, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir %s: %w", d.dir, err)
	}

	artifacts := make([]Artifact, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != PlaylistExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:    strings.TrimSuffix(e.Name(), PlaylistExt),
			ModTime: info.ModTime(),
		})
	}
	return artifacts, nil
}

// ModTime returns the modification time of the playlist for name. Names that
// are not plain file stems never resolve.
func (d *DirSource) ModTime(name string) (time.Time, bool) {
	if name == "" || filepath.Base(name) != name {
		return time.Time{}, false
	}
	info, err := os.Stat(filepath.Join(d.dir, name+PlaylistExt))
	if err != nil || info.IsDir() {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
