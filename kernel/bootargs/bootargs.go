// Package bootargs holds the kernel command line. The command line is a
// whitespace separated list of key=value pairs; a bare key maps to itself.
package bootargs

import (
	"strconv"
	"strings"
)

var cmdLineKV map[string]string

// SetCmdLine parses cmdLine and makes it the active configuration.
func SetCmdLine(cmdLine string) {
	cmdLineKV = Parse(cmdLine)
}

// Parse splits a command line into its key/value pairs.
func Parse(cmdLine string) map[string]string {
	kv := make(map[string]string)
	for _, pair := range strings.Fields(cmdLine) {
		parts := strings.Split(pair, "=")
		switch len(parts) {
		case 2: // foo=bar
			kv[parts[0]] = parts[1]
		case 1: // nofoo
			kv[parts[0]] = parts[0]
		}
	}
	return kv
}

// Get returns the value of key and whether it was present.
func Get(key string) (string, bool) {
	v, ok := cmdLineKV[key]
	return v, ok
}

// Uint returns the numeric value of key, accepting decimal or 0x-prefixed
// hex. Missing or malformed values yield def.
func Uint(key string, def uint64) uint64 {
	v, ok := cmdLineKV[key]
	if !ok {
		return def
	}

	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}
