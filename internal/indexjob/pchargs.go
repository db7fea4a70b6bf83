package indexjob

import "strings"

// IsPCH reports whether a compile command builds a precompiled header:
// it scans for a `-x c++-header` or `-x c-header` language flag,
// either as two separate arguments or as one `-x<lang>` argument.
func IsPCH(args []string) bool {
	nextIsX := false
	for _, arg := range args {
		switch {
		case nextIsX:
			return arg == "c++-header" || arg == "c-header"
		case arg == "-x":
			nextIsX = true
		case strings.HasPrefix(arg, "-x"):
			rest := arg[2:]
			return rest == "c++-header" || rest == "c-header"
		}
	}
	return false
}

// IncludedPaths returns the precompiled-header paths a compile command
// names through -include-pch or -include, the two flags clang accepts
// for pulling in a prebuilt header. Each is returned as written on the
// command line; the caller resolves it to a file id through its own
// registry.
func IncludedPaths(args []string) []string {
	var paths []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-include-pch" || arg == "-include":
			if i+1 < len(args) {
				paths = append(paths, args[i+1])
				i++
			}
		case strings.HasPrefix(arg, "-include-pch="):
			paths = append(paths, arg[len("-include-pch="):])
		case strings.HasPrefix(arg, "-include="):
			paths = append(paths, arg[len("-include="):])
		}
	}
	return paths
}
