// Package env reads process environment values that are consulted before the
// typed config is parsed, such as log formatting and the listen port.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}
