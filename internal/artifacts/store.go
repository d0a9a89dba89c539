// Package artifacts owns the on-disk layout of compiled interfaces and
// objects under the stuff directory.
package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/project"
)

const (
	InterfaceExt = ".elmi"
	ObjectExt    = ".elmo"
)

// Store resolves and persists per-module build artifacts. Each module maps to
// a disjoint set of file names, so concurrent workers never write the same
// path.
type Store struct {
	root            string
	compilerVersion string
}

func NewStore(stuffDir, compilerVersion string) *Store {
	return &Store{
		root:            filepath.Join(stuffDir, "build-artifacts", compilerVersion),
		compilerVersion: compilerVersion,
	}
}

func (s *Store) moduleDir(id project.ModuleID) string {
	return filepath.Join(s.root, id.Pkg.Author, id.Pkg.Project)
}

func (s *Store) InterfacePath(id project.ModuleID) string {
	return filepath.Join(s.moduleDir(id), id.Hyphenated()+InterfaceExt)
}

func (s *Store) ObjectPath(id project.ModuleID) string {
	return filepath.Join(s.moduleDir(id), id.Hyphenated()+ObjectExt)
}

// InterfaceModTime stats the persisted interface. The bool reports whether
// the file exists; stat failures other than not-exist are returned as
// CorruptedArtifact.
func (s *Store) InterfaceModTime(id project.ModuleID) (time.Time, bool, error) {
	path := s.InterfacePath(id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, errors.CorruptedArtifact(path, err)
	}
	return info.ModTime(), true, nil
}

// ReadInterface loads a persisted interface. An existing-but-unreadable file
// surfaces as CorruptedArtifact.
func (s *Store) ReadInterface(id project.ModuleID) (project.Interface, error) {
	path := s.InterfacePath(id)
	data, err := os.ReadFile(path)
	if err != nil {
		return project.Interface{}, errors.CorruptedArtifact(path, err)
	}
	var iface project.Interface
	if err := json.Unmarshal(data, &iface); err != nil {
		return project.Interface{}, errors.CorruptedArtifact(path, err)
	}
	return iface, nil
}

// WriteInterface persists the interface via a temp file and rename so a
// crashed build never leaves a half-written interface in place.
func (s *Store) WriteInterface(id project.ModuleID, iface project.Interface) error {
	data, err := json.Marshal(iface)
	if err != nil {
		return err
	}
	return writeAtomic(s.InterfacePath(id), data)
}

// WriteObject persists the compiled object beside the interface.
func (s *Store) WriteObject(id project.ModuleID, data []byte) error {
	return writeAtomic(s.ObjectPath(id), data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
