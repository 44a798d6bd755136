// Package editor decides which program the "edit" key opens on the remote host.
package editor

import (
	"log"

	"github.com/kballard/go-shellquote"
)

// Default is used when neither variable is set or the value cannot be parsed.
const Default = "vi"

// Variables are consulted in order; the first non-empty one wins.
var Variables = []string{"VISUAL", "EDITOR"}

// Resolve returns the editor argv. getenv is normally os.Getenv.
func Resolve(getenv func(string) string) []string {
	for _, name := range Variables {
		value := getenv(name)
		if value == "" {
			continue
		}
		argv, err := shellquote.Split(value)
		if err != nil || len(argv) == 0 {
			log.Printf("[editor] ignoring %s=%q: unparsable, using %s", name, value, Default)
			return []string{Default}
		}
		return argv
	}
	return []string{Default}
}
