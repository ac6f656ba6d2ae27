package haste

import (
	"log"
	"path"
	"strings"
)

// MockRegistry tracks the manual mock for each module name (section 4.7).
// Mocks are keyed by basename-without-extension, matching the convention
// that "__mocks__/Foo.js" mocks whatever module resolves to "Foo".
type MockRegistry struct {
	mocks                  MockTable
	throwOnModuleCollision bool
}

// NewMockRegistry binds a registry to the Snapshot's mock table.
func NewMockRegistry(mocks MockTable, throwOnModuleCollision bool) *MockRegistry {
	return &MockRegistry{mocks: mocks, throwOnModuleCollision: throwOnModuleCollision}
}

// MockNameFromPath derives the mock key for a file under a configured mocks
// directory: the basename with its extension stripped.
func MockNameFromPath(relPath string) string {
	base := path.Base(relPath)
	if dot := strings.LastIndexByte(base, '.'); dot > 0 {
		base = base[:dot]
	}
	return base
}

// SetMock records relPath as the mock implementation for mockName. A second
// file claiming the same mock name is a collision: fatal if
// throwOnModuleCollision is set, otherwise the first registration wins and
// a warning is logged.
func (m *MockRegistry) SetMock(mockName, relPath string) error {
	existing, ok := m.mocks[mockName]
	if !ok {
		m.mocks[mockName] = relPath
		return nil
	}
	if existing == relPath {
		return nil
	}
	if m.throwOnModuleCollision {
		log.Printf("error: haste mock naming collision: %q is provided by both %s and %s", mockName, existing, relPath)
		return &DuplicateError{Kind: "mock", ID: mockName, PathA: existing, PathB: relPath}
	}
	log.Printf("warning: haste mock naming collision: %q is provided by both %s and %s, keeping %s", mockName, existing, relPath, existing)
	return nil
}

// RemoveMock drops the registration for mockName if it currently points at
// relPath, used when the backing file is deleted.
func (m *MockRegistry) RemoveMock(mockName, relPath string) {
	if m.mocks[mockName] == relPath {
		delete(m.mocks, mockName)
	}
}

// matchesMocksPattern reports whether relPath falls under the configured
// mocks directory convention, e.g. a "__mocks__/" path segment.
func matchesMocksPattern(relPath, mocksPattern string) bool {
	if mocksPattern == "" {
		return false
	}
	g, err := newGlobSet([]string{mocksPattern})
	if err != nil {
		return false
	}
	// The "/"-prefixed form lets a pattern starting with "**/" also match a
	// directory at the root itself, e.g. "__mocks__/Foo.js".
	return g.matchAny(relPath) || g.matchAny("/"+relPath)
}
