package fsdaemon

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mvp-joe/hastemap/internal/haste"
)

// fileState is the last-known mtime/size for one path under one root,
// the daemon's answer to "what changed since the client's last clock".
type fileState struct {
	mtime int64
	size  int64
}

// rootIndex is one watched root's live index plus its fsnotify watch and
// monotonically increasing clock - bumped every time the background
// watcher observes a change, so a client's "since" cursor is just the
// clock value it was last handed.
type rootIndex struct {
	mu    sync.Mutex
	files map[string]fileState
	clock int64
}

// Server is the long-running process behind the socket daemonCrawler
// dials. It keeps one rootIndex per watched root warm via fsnotify, so a
// client's crawl request costs a copy of the in-memory listing (or nothing
// beyond the clock, when the client's clock is current), never a fresh
// filepath.Walk. Grounded on the accept-loop/per-project-state shape of
// indexer/daemon.Server, rebuilt around a newline-JSON protocol since the
// gRPC stubs that server depended on were never part of this tree.
type Server struct {
	listener net.Listener
	single   *SingletonDaemon

	mu     sync.RWMutex
	roots  map[string]*rootIndex
	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
}

// NewServer prepares a Server bound to socketPath. Call ListenAndServe to
// actually enforce the singleton and start accepting connections.
func NewServer(socketPath string) (*Server, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Server{
		single: NewSingletonDaemon(socketPath),
		roots:  make(map[string]*rootIndex),
		fsw:    fsw,
	}, nil
}

// ListenAndServe enforces the singleton, binds the socket, and serves
// until ctx is cancelled. Returns nil immediately, without serving, if
// another daemon already owns the socket - the caller should treat that
// as success, not failure (section 4.3's "losing daemon exits gracefully").
func (s *Server) ListenAndServe(ctx context.Context) error {
	won, err := s.single.EnforceSingleton()
	if err != nil {
		return err
	}
	if !won {
		log.Println("fsdaemon: another instance already owns this socket, exiting")
		return nil
	}
	defer s.single.Release()

	listener, err := s.single.BindSocket()
	if err != nil {
		return err
	}
	s.listener = listener
	defer listener.Close()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.watchLoop(ctx)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.handleConn(conn)
	}
}

// Stop cancels the watch loop and closes the listener.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.fsw.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	var req haste.CrawlRequest
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.writeRecord(conn, haste.CrawlRecord{Error: err.Error(), Done: true})
		return
	}

	enc := json.NewEncoder(conn)
	for _, root := range req.Roots {
		idx := s.rootIndexFor(root, req.Extensions)
		idx.mu.Lock()
		clock := idx.clock
		sinceStr, hasSince := req.Since[root]
		since, _ := strconv.ParseInt(sinceStr, 10, 64)
		if hasSince && since == clock {
			idx.mu.Unlock()
			_ = enc.Encode(haste.CrawlRecord{Root: root, Done: true, Clock: strconv.FormatInt(clock, 10)})
			continue
		}
		snapshot := make(map[string]fileState, len(idx.files))
		for p, st := range idx.files {
			snapshot[p] = st
		}
		idx.mu.Unlock()

		for p, st := range snapshot {
			_ = enc.Encode(haste.CrawlRecord{Root: root, Path: p, Status: "modified", MTime: st.mtime, Size: st.size})
		}
		_ = enc.Encode(haste.CrawlRecord{Root: root, Done: true, Clock: strconv.FormatInt(clock, 10)})
	}
}

func (s *Server) writeRecord(conn net.Conn, rec haste.CrawlRecord) {
	_ = json.NewEncoder(conn).Encode(rec)
}

func (s *Server) rootIndexFor(root string, extensions []string) *rootIndex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.roots[root]; ok {
		return idx
	}
	idx := &rootIndex{files: make(map[string]fileState)}
	s.roots[root] = idx
	s.seedIndex(root, idx)
	s.watchTreeRecursive(root)
	return idx
}

func (s *Server) seedIndex(root string, idx *rootIndex) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		idx.mu.Lock()
		idx.files[path] = fileState{mtime: info.ModTime().UnixNano(), size: info.Size()}
		idx.mu.Unlock()
		return nil
	})
}

func (s *Server) watchTreeRecursive(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || !info.IsDir() {
			return nil
		}
		_ = s.fsw.Add(path)
		return nil
	})
}

// watchLoop is the daemon's own long-lived watch over every root it has
// been asked to index, bumping that root's clock on any change so the
// next client request knows something moved.
func (s *Server) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.applyEvent(ev)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("fsdaemon: watch error: %v", err)
		}
	}
}

func (s *Server) applyEvent(ev fsnotify.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for root, idx := range s.roots {
		rel, err := filepath.Rel(root, ev.Name)
		if err != nil || filepathHasDotDotSeg(rel) {
			continue
		}
		idx.mu.Lock()
		if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
			delete(idx.files, ev.Name)
		} else if info, statErr := os.Stat(ev.Name); statErr == nil && !info.IsDir() {
			idx.files[ev.Name] = fileState{mtime: info.ModTime().UnixNano(), size: info.Size()}
		}
		idx.clock++
		idx.mu.Unlock()
	}
}

func filepathHasDotDotSeg(p string) bool {
	return len(p) >= 2 && p[0] == '.' && p[1] == '.'
}
