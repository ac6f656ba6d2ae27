package haste

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// extractionRecord is what a single file's worker job produces: either a
// fully-populated FileEntry plus, possibly, a haste-id claim, or an error
// that tells the coordinator how to treat the file.
type extractionRecord struct {
	RelPath string
	Entry   *FileEntry
	HasteID string
	Kind    Kind
	IsMock  bool
	MockKey string
	Removed bool // file vanished between crawl and read (ENOENT) or is unreadable (EACCES)
}

// Extractor runs the per-file pipeline described in section 4.5: decide
// whether the file needs its content read at all, read it, ask the
// HasteImpl for a module name, ask the DependencyExtractor for its
// dependency list, and hash it if configured to.
type Extractor struct {
	cfg       *Config
	hasteImpl HasteImpl
	depExtr   DependencyExtractor
}

// NewExtractor builds an Extractor bound to cfg's plugins (already
// defaulted by Config.Normalize).
func NewExtractor(cfg *Config) *Extractor {
	return &Extractor{cfg: cfg, hasteImpl: cfg.HasteImpl, depExtr: cfg.DependencyExtractor}
}

// JobFunc adapts Extract to the WorkerPool's job signature, looking up
// relPath's pre-build FileEntry (if any) so Extract can tell whether a
// retained node_modules file already has a sha1 on record.
func (e *Extractor) JobFunc(prev FileTable) JobFunc {
	return func(ctx context.Context, relPath string) (any, error) {
		return e.Extract(ctx, relPath, prev[relPath])
	}
}

// Extract implements the decision tree in section 4.5:
//
//  1. If SkipPackageJSON is set, a package.json is skipped entirely: no
//     read, no haste-id/dependency extraction, metadata only.
//  2. Otherwise a package.json is only opened for its own metadata (never
//     run through the haste-id or dependency extractor).
//  3. Under RetainAllFiles, a file inside node_modules is retained in the
//     FileTable (so deletions are still tracked) but never run through the
//     haste-id/dependency extractor: its sha1 is (re)computed only if
//     ComputeSha1 is set and it has none yet, otherwise it is left alone.
//  4. A file whose root-relative path matches MocksPattern is routed to the
//     mock registry instead of the module table.
//  5. Otherwise the file is read, hashed if configured, and passed to the
//     HasteImpl/DependencyExtractor pair.
//
// A file that vanished between crawl and read (os.ErrNotExist) or that
// cannot be read for lack of permission is reported as Removed, never as an
// error: the coordinator drops it from FileTable exactly as if the crawler
// had reported a deletion. Any other error (an I/O error, for example) is
// returned so the caller can decide whether to abort the whole build
// (section 7).
func (e *Extractor) Extract(_ context.Context, relPath string, prev *FileEntry) (*extractionRecord, error) {
	absPath := filepath.Join(e.cfg.RootDir, relPath)
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &extractionRecord{RelPath: relPath, Removed: true}, nil
		}
		if os.IsPermission(err) {
			return &extractionRecord{RelPath: relPath, Removed: true}, nil
		}
		return nil, err
	}

	base := filepath.Base(relPath)
	if base == "package.json" {
		if e.cfg.SkipPackageJSON {
			return &extractionRecord{RelPath: relPath, Entry: &FileEntry{MTime: info.ModTime().UnixNano(), Size: info.Size()}}, nil
		}
		return e.extractPackageJSON(relPath, absPath, info)
	}

	if e.cfg.RetainAllFiles && insideNodeModules(relPath) {
		entry := &FileEntry{MTime: info.ModTime().UnixNano(), Size: info.Size()}
		if prev != nil {
			entry.SHA1 = prev.SHA1
		}
		if e.cfg.ComputeSha1 && entry.SHA1 == "" {
			if sum, err := sha1File(absPath); err == nil {
				entry.SHA1 = sum
			}
		}
		return &extractionRecord{RelPath: relPath, Entry: entry}, nil
	}

	if matchesMocksPattern(relPath, e.cfg.MocksPattern) {
		return &extractionRecord{
			RelPath: relPath,
			Entry:   &FileEntry{MTime: info.ModTime().UnixNano(), Size: info.Size(), Visited: true},
			IsMock:  true,
			MockKey: MockNameFromPath(relPath),
		}, nil
	}

	if len(e.cfg.Extensions) > 0 && !hasConfiguredExtension(relPath, e.cfg.Extensions) {
		entry := &FileEntry{MTime: info.ModTime().UnixNano(), Size: info.Size()}
		if e.cfg.ComputeSha1 {
			if sum, err := sha1File(absPath); err == nil {
				entry.SHA1 = sum
			}
		}
		return &extractionRecord{RelPath: relPath, Entry: entry}, nil
	}

	contents, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return &extractionRecord{RelPath: relPath, Removed: true}, nil
		}
		return nil, err
	}

	entry := &FileEntry{
		MTime:   info.ModTime().UnixNano(),
		Size:    info.Size(),
		Visited: true,
	}
	if e.cfg.ComputeSha1 {
		entry.SHA1 = sha1Bytes(contents)
	}
	if e.cfg.ComputeDependencies {
		entry.Deps = e.depExtr.Extract(contents, absPath, defaultDependencyExtractor{})
	}

	hasteID := e.hasteImpl.GetHasteName(absPath, contents)
	if hasteID == "" {
		return &extractionRecord{RelPath: relPath, Entry: entry}, nil
	}

	return &extractionRecord{
		RelPath: relPath,
		Entry:   entry,
		HasteID: hasteID,
		Kind:    kindForPath(relPath),
	}, nil
}

func (e *Extractor) extractPackageJSON(relPath, absPath string, info os.FileInfo) (*extractionRecord, error) {
	entry := &FileEntry{MTime: info.ModTime().UnixNano(), Size: info.Size(), Visited: true}
	if e.cfg.ComputeSha1 {
		if sum, err := sha1File(absPath); err == nil {
			entry.SHA1 = sum
		}
	}
	return &extractionRecord{RelPath: relPath, Entry: entry, Kind: KindPackage}, nil
}

func kindForPath(relPath string) Kind {
	if strings.HasSuffix(relPath, "package.json") {
		return KindPackage
	}
	return KindModule
}

func sha1Bytes(b []byte) string {
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
