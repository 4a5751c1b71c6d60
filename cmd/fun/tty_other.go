//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package main

// isTerminal reports false, so the REPL never prints prompts.
func isTerminal(fd uintptr) bool {
	return false
}
