package haste

import "sort"

// HasteFS is a frozen, read-only view over a Snapshot's FileTable,
// handed to consumers instead of the Snapshot itself so they cannot
// observe (or corrupt) a build in progress.
type HasteFS struct {
	files     FileTable
	platforms []string
}

// NewHasteFS wraps snap's FileTable. The caller retains ownership of snap;
// HasteFS never mutates it.
func NewHasteFS(snap *Snapshot, platforms []string) *HasteFS {
	return &HasteFS{files: snap.Files, platforms: platforms}
}

// Exists reports whether relPath is a known file.
func (fs *HasteFS) Exists(relPath string) bool {
	_, ok := fs.files[relPath]
	return ok
}

// Entry returns the FileEntry for relPath, or nil if unknown.
func (fs *HasteFS) Entry(relPath string) *FileEntry {
	return fs.files[relPath]
}

// Dependencies returns relPath's recorded dependency list, or nil if the
// file is unknown or dependency extraction was not enabled.
func (fs *HasteFS) Dependencies(relPath string) []string {
	entry, ok := fs.files[relPath]
	if !ok {
		return nil
	}
	return entry.Deps
}

// Paths returns every known relative path, sorted for deterministic
// iteration (e.g. for `hastemap stats` output).
func (fs *HasteFS) Paths() []string {
	paths := make([]string, 0, len(fs.files))
	for p := range fs.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ModuleMap is a frozen, read-only view over a Snapshot's ModuleTable and
// DuplicateTable, handing back the per-(id, platform) resolution the
// duplicate-resolution state machine in duplicates.go computed.
type ModuleMap struct {
	modules    ModuleTable
	duplicates DuplicateTable
	mocks      MockTable
	platforms  []string
}

// NewModuleMap wraps snap's module/duplicate/mock tables.
func NewModuleMap(snap *Snapshot, platforms []string) *ModuleMap {
	return &ModuleMap{
		modules:    snap.Modules,
		duplicates: snap.Duplicates,
		mocks:      snap.Mocks,
		platforms:  platforms,
	}
}

// GetModule resolves id for the given platform (empty string for the
// generic/no-platform binding). It returns ok=false both when the id is
// unknown and when it is ambiguous - i.e. still sitting in the
// DuplicateTable with more than one claimant - since neither case has a
// single correct path to report (section 4.10).
func (m *ModuleMap) GetModule(id, platform string) (ModuleEntry, bool) {
	if platform == "" {
		platform = Generic
	}
	if byPlatform, ok := m.duplicates[id]; ok {
		if _, ok := byPlatform[platform]; ok {
			return ModuleEntry{}, false
		}
	}
	byPlatform, ok := m.modules[id]
	if !ok {
		return ModuleEntry{}, false
	}
	entry, ok := byPlatform[platform]
	return entry, ok
}

// IsDuplicate reports whether id is currently ambiguous for platform.
func (m *ModuleMap) IsDuplicate(id, platform string) bool {
	if platform == "" {
		platform = Generic
	}
	byPlatform, ok := m.duplicates[id]
	if !ok {
		return false
	}
	_, ok = byPlatform[platform]
	return ok
}

// GetMockModule resolves a manual mock by module name.
func (m *ModuleMap) GetMockModule(name string) (string, bool) {
	path, ok := m.mocks[name]
	return path, ok
}

// ModuleIDs returns every haste id currently bound (winners only, not
// ids stuck in the duplicate table), sorted.
func (m *ModuleMap) ModuleIDs() []string {
	ids := make([]string, 0, len(m.modules))
	for id := range m.modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
