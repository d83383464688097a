// Package metadata caches parsed binary metadata and checks that analyzer
// images loaded into the server still match what is on disk.
//
// A [Cache] maps a [FileKey] (path, modification time, size) to the parsed
// [Metadata] of the file. Two reads with equal keys are assumed to yield the
// same metadata, so a long-lived server re-reads a reference only after it
// has changed. Only assembly-kind metadata is cached; module-kind metadata
// is parsed on every request. The cache holds at most [CacheCapacity]
// entries and evicts the least recently used one when full.
//
// A [Loader] pins the first image it loads for each path for the lifetime
// of the process, the way a runtime that cannot unload code does. The
// [Checker] compares every pinned analyzer image against the current file
// on disk and reports each analyzer whose module version id has changed,
// because a server that keeps running with a stale analyzer would silently
// produce different results from a fresh compiler.
//
// Example usage:
//
//	cache := metadata.NewCache()
//	defer cache.Close()
//
//	checker := metadata.NewChecker(metadata.NewLoader(hostDir), cache)
//	if ok, msgs := checker.Check(workDir, analyzers); !ok {
//	    return msgs
//	}
package metadata
