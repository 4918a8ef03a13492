package env

import "os"

// Get reads an environment variable, falling back when it is unset or empty.
// An empty value counts as unset so compose files can blank a variable
// without clobbering the default.
func Get(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
