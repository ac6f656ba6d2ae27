// Package fsdaemon implements the watchman-like file-watching daemon that
// internal/haste.daemonCrawler talks to: a long-lived process that keeps a
// filesystem index warm so a client's crawl request is answered from memory,
// not by a fresh walk.
//
// Grounded on internal/daemon's SingletonDaemon/EnsureDaemon pair: socket
// bind plus file lock for daemon-side singleton enforcement, auto-spawn
// plus dial-retry for client-side "ensure running".
package fsdaemon

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
)

// SingletonDaemon enforces that only one fsdaemon process serves a given
// socket path at a time. Losing processes exit(0) rather than error:
// another instance already won and is serving the same clients.
type SingletonDaemon struct {
	socketPath string
	lock       *flock.Flock
}

// NewSingletonDaemon builds a singleton guard bound to socketPath.
func NewSingletonDaemon(socketPath string) *SingletonDaemon {
	return &SingletonDaemon{socketPath: socketPath}
}

// EnforceSingleton attempts to become the one daemon serving socketPath.
// Returns (true, nil) if this process won and should start serving,
// (false, nil) if another instance already holds the socket, or an error
// for anything else.
func (s *SingletonDaemon) EnforceSingleton() (bool, error) {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		if !isAddrInUse(err) {
			return false, fmt.Errorf("bind socket: %w", err)
		}
		if canDial(s.socketPath) {
			return false, nil
		}
		// Nobody answers on the existing socket file: it is stale, and
		// BindSocket removes it once the lock below is held.
	} else {
		listener.Close()
	}

	lockPath := s.socketPath + ".lock"
	s.lock = flock.New(lockPath)
	locked, err := s.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return false, nil
	}
	return true, nil
}

// BindSocket creates the listener. Call only after EnforceSingleton
// returns true - a stale socket file from a crashed daemon is removed
// first, since a dead daemon's path otherwise blocks every future bind.
func (s *SingletonDaemon) BindSocket() (net.Listener, error) {
	if _, err := os.Stat(s.socketPath); err == nil {
		if !canDial(s.socketPath) {
			os.Remove(s.socketPath)
		}
	}
	return net.Listen("unix", s.socketPath)
}

// Release releases the file lock on shutdown.
func (s *SingletonDaemon) Release() error {
	if s.lock != nil {
		return s.lock.Unlock()
	}
	return nil
}

func canDial(socketPath string) bool {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

// DefaultSocketPath returns the conventional per-project socket path under
// a cache directory.
func DefaultSocketPath(cacheDir, projectName string) string {
	return filepath.Join(cacheDir, projectName+".watchd.sock")
}
