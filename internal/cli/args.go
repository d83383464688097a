package cli

import "strings"

// Single-dash forms accepted for compatibility with existing launchers.
const (
	legacyPipeName = "-pipename:"
	legacyShutdown = "-shutdown"
)

// Rewrites "-pipename:<name>" and "-shutdown" into their long flag forms.
//
// Matching is case-insensitive. Other arguments are passed through
// unchanged, so unknown ones still fail to parse.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, legacyPipeName):
			out = append(out, "--pipename="+arg[len(legacyPipeName):])
		case lower == legacyShutdown:
			out = append(out, "--shutdown")
		default:
			out = append(out, arg)
		}
	}
	return out
}
