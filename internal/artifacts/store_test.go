package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abadi199/elm-make/internal/errors"
	"github.com/abadi199/elm-make/internal/project"
)

func mid(name string) project.ModuleID {
	return project.ModuleID{Pkg: project.Pkg{Author: "alice", Project: "app"}, Name: name}
}

func TestStore_PathLayout(t *testing.T) {
	s := NewStore("elm-stuff", "0.19.1")
	id := mid("Json.Decode")

	assert.Equal(t,
		filepath.Join("elm-stuff", "build-artifacts", "0.19.1", "alice", "app", "Json-Decode.elmi"),
		s.InterfacePath(id))
	assert.Equal(t,
		filepath.Join("elm-stuff", "build-artifacts", "0.19.1", "alice", "app", "Json-Decode.elmo"),
		s.ObjectPath(id))
}

func TestStore_InterfaceRoundtrip(t *testing.T) {
	s := NewStore(t.TempDir(), "0.19.1")
	id := mid("Main")
	iface := project.Interface{
		Fingerprint: "abc123",
		Exports:     map[string]string{"main": "value"},
	}

	require.NoError(t, s.WriteInterface(id, iface))

	got, err := s.ReadInterface(id)
	require.NoError(t, err)
	assert.Equal(t, iface, got)

	_, exists, err := s.InterfaceModTime(id)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_MissingInterface(t *testing.T) {
	s := NewStore(t.TempDir(), "0.19.1")

	_, exists, err := s.InterfaceModTime(mid("Nope"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_CorruptedInterface(t *testing.T) {
	s := NewStore(t.TempDir(), "0.19.1")
	id := mid("Broken")

	path := s.InterfacePath(id)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("not json{"), 0o644))

	_, err := s.ReadInterface(id)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCorruptedArtifact))
}

func TestStore_ObjectWrite(t *testing.T) {
	s := NewStore(t.TempDir(), "0.19.1")
	id := mid("Main")

	require.NoError(t, s.WriteObject(id, []byte("object code")))
	data, err := os.ReadFile(s.ObjectPath(id))
	require.NoError(t, err)
	assert.Equal(t, []byte("object code"), data)
}
