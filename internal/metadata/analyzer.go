package metadata

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Verifies that loaded analyzers match the files on disk.
type Checker struct {
	loader AssemblyLoader
	cache  *Cache
}

// Creates a checker that loads analyzers through loader and reads on-disk
// module version ids through cache.
func NewChecker(loader AssemblyLoader, cache *Cache) *Checker {
	return &Checker{loader: loader, cache: cache}
}

// Checks the analyzers referenced by a compilation.
//
// Relative paths are resolved against baseDir. Paths that do not resolve
// to an existing file are skipped; the compiler reports those itself. Every
// resolved path is registered as a dependency location before any analyzer
// is loaded, so analyzers can reference each other. For each analyzer not
// owned by the host, the module version id of the loaded image is compared
// with the one on disk.
//
// Returns true and no messages if every analyzer matches. Otherwise returns
// false with one message per mismatched analyzer. Any failure while
// checking is reported as a single message and counts as a mismatch.
func (c *Checker) Check(baseDir string, analyzers []string) (ok bool, messages []string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("analyzer consistency check panicked", "panic", r)
			ok, messages = false, []string{fmt.Sprintf("analyzer consistency check failed: %v", r)}
		}
	}()

	msgs, err := c.check(baseDir, analyzers)
	if err != nil {
		slog.Error("analyzer consistency check failed", "error", err)
		return false, []string{fmt.Sprintf("analyzer consistency check failed: %v", err)}
	}
	return len(msgs) == 0, msgs
}

func (c *Checker) check(baseDir string, analyzers []string) ([]string, error) {
	resolved := make([]string, 0, len(analyzers))
	for _, a := range analyzers {
		if path, ok := resolvePath(baseDir, a); ok {
			resolved = append(resolved, path)
		} else {
			slog.Debug("skipping unresolvable analyzer", "path", a)
		}
	}

	for _, path := range resolved {
		c.loader.AddDependencyLocation(path)
	}

	images := make([]*Image, 0, len(resolved))
	for _, path := range resolved {
		img, err := c.loader.Load(path)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	var msgs []string
	for _, img := range images {
		if img.HostOwned {
			continue
		}

		md, err := c.cache.GetMetadata(img.Path, Properties{Kind: AssemblyKind})
		if err != nil {
			return nil, err
		}

		if md.MVID != img.MVID {
			slog.Warn("analyzer changed on disk since it was loaded",
				"path", img.Path,
				"loaded", img.MVID,
				"disk", md.MVID,
			)
			msgs = append(msgs, fmt.Sprintf(
				"analyzer %s has changed since it was loaded (loaded %s, on disk %s); restart the build server",
				img.Path, img.MVID, md.MVID,
			))
		}
	}

	return msgs, nil
}

// Resolves p against baseDir and reports whether it names an existing file.
func resolvePath(baseDir, p string) (string, bool) {
	if p == "" {
		return "", false
	}
	if !filepath.IsAbs(p) {
		if baseDir == "" {
			return "", false
		}
		p = filepath.Join(baseDir, p)
	}
	p = filepath.Clean(p)

	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", false
	}
	return p, true
}
