// Package stacktrace trims raw goroutine stacks down to this module's frames.
package stacktrace

import "strings"

var moduleDirs = []string{"/internal/", "/cmd/"}

// InternalPaths returns "dir/pkg/file.go:line" for every frame of the stack
// that belongs to the module's internal or cmd trees, outermost call last.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines)/2)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, ".go:")
		if idx == -1 {
			continue
		}

		// drop the " +0x1f" pc offset
		loc, _, _ := strings.Cut(line, " ")
		for _, dir := range moduleDirs {
			if at := strings.Index(loc, dir); at != -1 {
				paths = append(paths, loc[at+1:])
				break
			}
		}
	}

	return paths
}
