// Provides platform-appropriate paths for the daemon.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS. The daemon name "compd" is used as the subdirectory under each
// base path. Per-server files (the socket and the singleton lock) are named
// after the pipe name, which is derived from the installation directory of
// the executable so that each installed compiler gets its own server.
package paths
