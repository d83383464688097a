// Package build runs compilations on behalf of the server.
//
// A [Compiler] turns a [protocol.RunRequest] into a [protocol.BuildResponse].
// Requests without a working or temp directory are rejected. Otherwise the
// analyzers named on the command line are checked for consistency with the
// images already loaded into the server, references are read through the
// process-wide metadata cache, and the compiler command configured for the
// request's language is run in the client's working directory with the
// client's temp directory and LIB variable.
//
// Compiler commands are command lines such as "dotnet exec /opt/csc.dll",
// split into words with shell quoting rules. The request's arguments are
// appended after the configured words.
//
// Example usage:
//
//	compiler, err := build.New(build.Options{
//	    Commands: map[string]string{"csharp": "csc"},
//	    Cache:    cache,
//	    Loader:   loader,
//	})
//	if err != nil {
//	    return err
//	}
//
//	resp := compiler.RunCompilation(ctx, run)
package build
