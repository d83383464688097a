package build

import (
	"strings"

	"github.com/cruciblehq/compd/internal/protocol"
)

// Options of a compiler command line that the server acts on.
//
// Options are recognised with either a "/" or "-" prefix, names are
// case-insensitive, and list values may be separated by "," or ";". A
// reference may carry an alias ("alias=path"), which is stripped.
type invocation struct {
	workdir    string
	env        map[string]string
	analyzers  []string
	references []string
	modules    []string
	utf8Output bool
}

// Parses the parts of a run request the server needs.
func newInvocation(run protocol.RunRequest) *invocation {
	inv := &invocation{
		workdir: run.WorkingDirectory,
		env: map[string]string{
			"TMPDIR": run.TempDirectory,
			"TMP":    run.TempDirectory,
			"TEMP":   run.TempDirectory,
		},
	}
	if run.LibDirectory != "" {
		inv.env["LIB"] = run.LibDirectory
	}

	for _, arg := range run.Arguments {
		name, value, ok := parseOption(arg)
		if !ok {
			continue
		}
		switch name {
		case "analyzer", "a":
			inv.analyzers = append(inv.analyzers, splitList(value)...)
		case "reference", "r":
			for _, ref := range splitList(value) {
				if _, path, ok := strings.Cut(ref, "="); ok {
					ref = path
				}
				inv.references = append(inv.references, ref)
			}
		case "addmodule":
			inv.modules = append(inv.modules, splitList(value)...)
		case "utf8output":
			inv.utf8Output = true
		}
	}

	return inv
}

// Formats the environment overrides as "key=value" strings.
func (inv *invocation) environ() []string {
	env := make([]string, 0, len(inv.env))
	for k, v := range inv.env {
		env = append(env, k+"="+v)
	}
	return env
}

// Splits "/name:value" or "-name:value" into a lower-case name and value.
func parseOption(arg string) (name, value string, ok bool) {
	if len(arg) < 2 || (arg[0] != '/' && arg[0] != '-') {
		return "", "", false
	}
	body := arg[1:]
	name, value, _ = strings.Cut(body, ":")
	return strings.ToLower(name), value, true
}

// Splits a list option value, dropping empty entries and surrounding quotes.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ';' }) {
		item = strings.Trim(strings.TrimSpace(item), `"`)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
