// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the credentials litsearch passes to its model and
// literature sources. A credential lives in a file named after it inside the
// secrets directory (google-api-key, ncbi-api-key, scopus-api-key,
// semantic-scholar-api-key, openalex-email); when the file is missing, a
// mapped environment variable is used instead.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Origin records where a resolved credential came from.
type Origin string

const (
	FromFile Origin = "file"
	FromEnv  Origin = "env"
)

// Set is the outcome of resolving credentials.
type Set struct {
	Values  map[string]string
	Origins map[string]Origin
}

// Names returns the resolved credential names with their origin, sorted,
// in the form "name (origin)". Values are never included.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.Values))
	for k := range s.Values {
		out = append(out, fmt.Sprintf("%s (%s)", k, s.Origins[k]))
	}
	sort.Strings(out)
	return out
}

// Resolve loads dir and fills the gaps from the environment variables named
// in envNames, keyed by credential name.
func Resolve(dir string, envNames map[string]string) (Set, error) {
	files, err := Load(dir)
	if err != nil {
		return Set{}, err
	}
	set := Set{Values: WithEnv(files, envNames), Origins: make(map[string]Origin)}
	for k := range set.Values {
		if _, ok := files[k]; ok {
			set.Origins[k] = FromFile
		} else {
			set.Origins[k] = FromEnv
		}
	}
	return set, nil
}

// Load returns the trimmed, non-empty contents of every regular file in dir,
// keyed by file name. Dotfiles and subdirectories are ignored. A missing
// directory yields an empty map; a file that cannot be read is reported on
// stderr and skipped.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	values := make(map[string]string, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping credential %s: %v\n", name, err)
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			values[name] = v
		}
	}
	return values, nil
}

// WithEnv returns a copy of values with missing credentials taken from the
// environment. Blank variables count as unset.
func WithEnv(values map[string]string, envNames map[string]string) map[string]string {
	out := make(map[string]string, len(values)+len(envNames))
	for k, v := range values {
		out[k] = v
	}
	for name, env := range envNames {
		if _, ok := out[name]; ok {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			out[name] = v
		}
	}
	return out
}
