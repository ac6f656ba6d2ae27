package haste

import "log"

// DuplicateRegistry enforces "at most one winner per (id, platform)" over
// a Snapshot's ModuleTable and DuplicateTable (section 4.6). It mutates the
// Snapshot it is constructed with directly; callers that need copy-on-write
// semantics (the watcher) call Snapshot.CloneShallow before handing the
// clone to a fresh DuplicateRegistry.
type DuplicateRegistry struct {
	snap                   *Snapshot
	platforms              []string
	throwOnModuleCollision bool
}

// NewDuplicateRegistry binds a registry to snap.
func NewDuplicateRegistry(snap *Snapshot, platforms []string, throwOnModuleCollision bool) *DuplicateRegistry {
	return &DuplicateRegistry{snap: snap, platforms: platforms, throwOnModuleCollision: throwOnModuleCollision}
}

// SetModule records that newPath provides id for the platform encoded in
// newPath, with kind newKind. Implements the four-way branch in section 4.6.
func (r *DuplicateRegistry) SetModule(id, newPath string, newKind Kind) error {
	p := Platform(newPath, r.platforms)

	if byPlatform, ok := r.snap.Duplicates[id]; ok {
		if paths, ok := byPlatform[p]; ok {
			paths[newPath] = newKind
			return nil
		}
	}

	if byPlatform, ok := r.snap.Modules[id]; ok {
		if winner, ok := byPlatform[p]; ok {
			if winner.Path == newPath {
				return nil // no-op: same file re-registering
			}

			if r.throwOnModuleCollision {
				log.Printf("error: haste module naming collision: %q is provided by both %s and %s", id, winner.Path, newPath)
				return &DuplicateError{Kind: "module", ID: id, Platform: p, PathA: winner.Path, PathB: newPath}
			}
			log.Printf("warning: haste module naming collision: %q is provided by both %s and %s", id, winner.Path, newPath)

			delete(byPlatform, p)
			if len(byPlatform) == 0 {
				delete(r.snap.Modules, id)
			}

			r.putDuplicate(id, p, winner.Path, winner.Kind)
			r.putDuplicate(id, p, newPath, newKind)
			return nil
		}
	}

	r.setWinner(id, p, ModuleEntry{Path: newPath, Kind: newKind})
	return nil
}

func (r *DuplicateRegistry) setWinner(id, p string, entry ModuleEntry) {
	byPlatform, ok := r.snap.Modules[id]
	if !ok {
		byPlatform = PlatformBindings{}
		r.snap.Modules[id] = byPlatform
	}
	byPlatform[p] = entry
}

func (r *DuplicateRegistry) putDuplicate(id, p, path string, kind Kind) {
	byPlatform, ok := r.snap.Duplicates[id]
	if !ok {
		byPlatform = map[string]DuplicateBindings{}
		r.snap.Duplicates[id] = byPlatform
	}
	paths, ok := byPlatform[p]
	if !ok {
		paths = DuplicateBindings{}
		byPlatform[p] = paths
	}
	paths[path] = kind
}

// RecoverDuplicates is invoked when the file behind a possibly-duplicated
// id is removed, or is about to be re-extracted. It removes relativePath
// from DuplicateTable[id][platform] and, if exactly one path remains,
// promotes the survivor back into ModuleTable.
func (r *DuplicateRegistry) RecoverDuplicates(relativePath, id string) {
	byPlatform, ok := r.snap.Duplicates[id]
	if !ok {
		return
	}
	p := Platform(relativePath, r.platforms)
	paths, ok := byPlatform[p]
	if !ok {
		return
	}
	if _, ok := paths[relativePath]; !ok {
		return
	}

	newPaths := make(DuplicateBindings, len(paths)-1)
	for path, kind := range paths {
		if path == relativePath {
			continue
		}
		newPaths[path] = kind
	}

	if len(newPaths) == 1 {
		for path, kind := range newPaths {
			r.setWinner(id, p, ModuleEntry{Path: path, Kind: kind})
		}
		delete(byPlatform, p)
	} else if len(newPaths) == 0 {
		delete(byPlatform, p)
	} else {
		byPlatform[p] = newPaths
	}

	if len(byPlatform) == 0 {
		delete(r.snap.Duplicates, id)
	}
}
