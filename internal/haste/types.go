// Package haste maintains a persistent, incrementally updated index of a
// source tree: which files exist and their content fingerprint, and which
// file provides each haste module identifier per platform variant.
package haste

import (
	"encoding/json"
	"fmt"
)

// Generic is the sentinel platform used when a file has no platform suffix.
const Generic = "GENERIC"

// Kind distinguishes a haste module binding from a haste package binding.
type Kind string

const (
	KindModule  Kind = "module"
	KindPackage Kind = "package"
)

// FileEntry is the per-path record tracked by the Snapshot. It is stored
// positionally on disk (see MarshalJSON) to keep the cache blob small and
// cheap to parse, while behaving like a normal struct everywhere else.
type FileEntry struct {
	HasteID string   // optional short identifier declared inside the file
	MTime   int64    // ns since epoch (time.Time.UnixNano), not ms
	Size    int64    // bytes
	Visited bool     // true once extraction has succeeded for this entry
	Deps    []string // ordered dependency strings
	SHA1    string   // 40-hex, present iff computeSha1
}

// MarshalJSON encodes a FileEntry as a 6-element positional array:
// [id, mtime, size, visited, deps, sha1].
func (f FileEntry) MarshalJSON() ([]byte, error) {
	visited := 0
	if f.Visited {
		visited = 1
	}
	deps := f.Deps
	if deps == nil {
		deps = []string{}
	}
	return json.Marshal([]interface{}{f.HasteID, f.MTime, f.Size, visited, deps, f.SHA1})
}

// UnmarshalJSON decodes a FileEntry from its positional array form.
func (f *FileEntry) UnmarshalJSON(data []byte) error {
	var tuple [6]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("decode FileEntry tuple: %w", err)
	}
	if err := json.Unmarshal(tuple[0], &f.HasteID); err != nil {
		return fmt.Errorf("decode FileEntry.HasteID: %w", err)
	}
	if err := json.Unmarshal(tuple[1], &f.MTime); err != nil {
		return fmt.Errorf("decode FileEntry.MTime: %w", err)
	}
	if err := json.Unmarshal(tuple[2], &f.Size); err != nil {
		return fmt.Errorf("decode FileEntry.Size: %w", err)
	}
	var visited int
	if err := json.Unmarshal(tuple[3], &visited); err != nil {
		return fmt.Errorf("decode FileEntry.Visited: %w", err)
	}
	f.Visited = visited != 0
	if err := json.Unmarshal(tuple[4], &f.Deps); err != nil {
		return fmt.Errorf("decode FileEntry.Deps: %w", err)
	}
	if len(f.Deps) == 0 {
		f.Deps = nil
	}
	return json.Unmarshal(tuple[5], &f.SHA1)
}

// ModuleEntry is the winning binding for a (haste id, platform) pair.
type ModuleEntry struct {
	Path string
	Kind Kind
}

// FileTable maps relative, forward-slash, root-relative paths to their entry.
type FileTable map[string]*FileEntry

// PlatformBindings maps platform -> winning ModuleEntry for one haste id.
type PlatformBindings map[string]ModuleEntry

// ModuleTable maps haste id -> platform -> the single winning ModuleEntry.
// Invariant: disjoint from DuplicateTable on every (id, platform) key.
type ModuleTable map[string]PlatformBindings

// DuplicateBindings maps path -> kind for every contested path bound to one
// (haste id, platform) key. Size is always >= 2.
type DuplicateBindings map[string]Kind

// DuplicateTable maps haste id -> platform -> contested path set.
type DuplicateTable map[string]map[string]DuplicateBindings

// MockTable maps mock name (basename without extension) -> relative path.
type MockTable map[string]string

// ClockTable maps a crawl root to the opaque clock token returned by the
// filesystem-indexing daemon, used to request the next delta.
type ClockTable map[string]string

// Snapshot is the full persisted index: the tuple (clocks, files, map,
// mocks, duplicates) described in spec section 3.
type Snapshot struct {
	Clocks     ClockTable
	Files      FileTable
	Modules    ModuleTable
	Mocks      MockTable
	Duplicates DuplicateTable
}

// Empty returns a freshly initialized, fully-populated empty Snapshot.
// A nil map anywhere in a Snapshot would panic on first write, so every
// constructor path (cache miss, first build, clone) must go through this
// or CloneShallow.
func Empty() *Snapshot {
	return &Snapshot{
		Clocks:     ClockTable{},
		Files:      FileTable{},
		Modules:    ModuleTable{},
		Mocks:      MockTable{},
		Duplicates: DuplicateTable{},
	}
}

// CloneShallow returns a new Snapshot whose tables are fresh maps, including
// fresh nested per-id maps in Modules and Duplicates; the *FileEntry values
// in Files are shared with the source, not copied. It is the copy-on-write
// primitive used by the watcher: callers that are about to mutate a table
// call this first so that any previously published view keeps seeing the
// old table contents.
func (s *Snapshot) CloneShallow() *Snapshot {
	clocks := make(ClockTable, len(s.Clocks))
	for k, v := range s.Clocks {
		clocks[k] = v
	}
	files := make(FileTable, len(s.Files))
	for k, v := range s.Files {
		files[k] = v
	}
	modules := make(ModuleTable, len(s.Modules))
	for id, byPlatform := range s.Modules {
		np := make(PlatformBindings, len(byPlatform))
		for p, e := range byPlatform {
			np[p] = e
		}
		modules[id] = np
	}
	mocks := make(MockTable, len(s.Mocks))
	for k, v := range s.Mocks {
		mocks[k] = v
	}
	dups := make(DuplicateTable, len(s.Duplicates))
	for id, byPlatform := range s.Duplicates {
		np := make(map[string]DuplicateBindings, len(byPlatform))
		for p, paths := range byPlatform {
			npaths := make(DuplicateBindings, len(paths))
			for path, kind := range paths {
				npaths[path] = kind
			}
			np[p] = npaths
		}
		dups[id] = np
	}
	return &Snapshot{Clocks: clocks, Files: files, Modules: modules, Mocks: mocks, Duplicates: dups}
}

// Platform returns the platform suffix encoded in a file name, or Generic
// if the file carries no recognized platform suffix. name is expected to be
// a relative path; only the final two dot-separated segments of the
// basename (before the extension) are inspected, e.g. "Widget.ios.js" -> "ios".
func Platform(relPath string, platforms []string) string {
	base := baseWithoutExt(relPath)
	for _, p := range platforms {
		if hasSuffixSegment(base, p) {
			return p
		}
	}
	return Generic
}

func baseWithoutExt(relPath string) string {
	slash := lastIndexByte(relPath, '/')
	name := relPath[slash+1:]
	dot := lastIndexByte(name, '.')
	if dot < 0 {
		return name
	}
	return name[:dot]
}

func hasSuffixSegment(base, segment string) bool {
	suffix := "." + segment
	if len(base) < len(suffix) {
		return false
	}
	return base[len(base)-len(suffix):] == suffix
}

func lastIndexByte(s string, b byte) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == b {
			return i
		}
	}
	return -1
}
