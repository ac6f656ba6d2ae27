package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// ErrNoRoots indicates the configuration names no roots to scan.
	ErrNoRoots = errors.New("no roots configured")

	// ErrInvalidIgnorePattern indicates roots.ignore is not a valid regex.
	ErrInvalidIgnorePattern = errors.New("invalid ignore pattern")

	// ErrInvalidExtensionGlob indicates an extension entry doesn't parse as
	// a doublestar glob fragment.
	ErrInvalidExtensionGlob = errors.New("invalid extension pattern")

	// ErrInvalidWorkerCount indicates extract.max_workers is negative (zero
	// is accepted).
	ErrInvalidWorkerCount = errors.New("invalid max_workers")
)

// Validate checks that a loaded Config is internally consistent before any
// haste.Builder is constructed from it. Pattern validity is checked here
// (the ignore regex with regexp, the extension globs and mocks pattern with
// doublestar) so a typo in a config file surfaces at load time, not as a
// silently-empty Snapshot.
func Validate(cfg *Config) error {
	var errs []error

	if len(cfg.Roots.Paths) == 0 {
		errs = append(errs, ErrNoRoots)
	}

	if _, err := compileIgnore(cfg.Roots.Ignore); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalidIgnorePattern, err))
	}

	for _, ext := range cfg.Roots.Extensions {
		if _, err := doublestar.Match("**/*."+ext, "a."+ext); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidExtensionGlob, ext, err))
		}
	}

	if cfg.Extract.MaxWorkers < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, cfg.Extract.MaxWorkers))
	}

	if cfg.Extract.MocksPattern != "" {
		if _, err := doublestar.Match(cfg.Extract.MocksPattern, "__mocks__/Foo.js"); err != nil {
			errs = append(errs, fmt.Errorf("invalid mocks_pattern %q: %v", cfg.Extract.MocksPattern, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func compileIgnore(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(msgs, "\n  - "))
}
