// Loads the daemon settings file.
//
// Settings are stored as TOML. Every field is optional; a missing file is
// the same as an empty one. The keep-alive may be written either as an
// integer or as a numeric string, and falls back to the default when it
// cannot be parsed rather than failing startup.
//
//	keep_alive = 600
//	gc_interval = 30
//	metrics_address = "127.0.0.1:9464"
//
//	[compilers]
//	csharp = "dotnet exec /opt/roslyn/csc.dll"
//	visualbasic = "dotnet exec /opt/roslyn/vbc.dll"
package settings
