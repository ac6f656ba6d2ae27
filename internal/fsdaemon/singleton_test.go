package fsdaemon

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingletonDaemon_EnforceSingleton_FirstCallWins(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "d.sock")
	d := NewSingletonDaemon(socketPath)

	won, err := d.EnforceSingleton()
	require.NoError(t, err)
	assert.True(t, won)
	require.NoError(t, d.Release())
}

func TestSingletonDaemon_EnforceSingleton_SecondInstanceLoses(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "d.sock")

	first := NewSingletonDaemon(socketPath)
	won1, err := first.EnforceSingleton()
	require.NoError(t, err)
	require.True(t, won1)
	ln, err := first.BindSocket()
	require.NoError(t, err)
	defer ln.Close()

	second := NewSingletonDaemon(socketPath)
	won2, err := second.EnforceSingleton()
	require.NoError(t, err)
	assert.False(t, won2)

	require.NoError(t, first.Release())
}

func TestSingletonDaemon_BindSocket_RemovesStaleSocketFile(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(t.TempDir(), "d.sock")

	crashed := NewSingletonDaemon(socketPath)
	won, err := crashed.EnforceSingleton()
	require.NoError(t, err)
	require.True(t, won)
	ln, err := crashed.BindSocket()
	require.NoError(t, err)
	ln.(*net.UnixListener).SetUnlinkOnClose(false)
	ln.Close() // simulate a crash: socket file left behind, listener gone
	require.NoError(t, crashed.Release())

	fresh := NewSingletonDaemon(socketPath)
	won, err = fresh.EnforceSingleton()
	require.NoError(t, err)
	require.True(t, won)

	ln2, err := fresh.BindSocket()
	require.NoError(t, err)
	defer ln2.Close()
}

func TestDefaultSocketPath_JoinsCacheDirAndProjectName(t *testing.T) {
	t.Parallel()

	path := DefaultSocketPath("/cache", "myproject")
	assert.Equal(t, filepath.Join("/cache", "myproject.watchd.sock"), path)
}
