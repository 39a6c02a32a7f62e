package engine

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestBasicSetGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("a", "1"))

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok, err = s.Get("b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("a", "2"))

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestRemoveThenGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Remove("a"))

	_, ok, err := s.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	err = s.Remove("a")
	require.True(t, errors.Is(err, ErrKeyNotFound))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, s.Set("k", "v"))
	require.NoError(t, s.Close())

	s2, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestOpenIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Remove("a"))
	require.NoError(t, s.Close())

	s2, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	require.NoError(t, s2.Close())

	s3, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	defer s3.Close()

	_, ok, err := s3.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := s3.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestActiveSegmentIDStrictlyIncreasesAfterReopen(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	firstActive := s.activeID
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Close())

	s2, err := Open("/db", WithFs(fs))
	require.NoError(t, err)
	defer s2.Close()

	require.Greater(t, s2.activeID, firstActive)
}
