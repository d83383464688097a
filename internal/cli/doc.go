// Parses flags and configures logging for the compd server.
//
// The server accepts the following flags:
//
//	-q, --quiet            Suppress informational output.
//	-v, --verbose          Enable verbose output.
//	-d, --debug            Enable debug output.
//	    --config PATH      Settings file.
//	    --pipename NAME    Pipe name. Also accepted as -pipename:NAME.
//	    --shutdown         Stop the running server. Also accepted as -shutdown.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity before
// the server starts. Unknown arguments fail parsing and nothing is started.
package cli
