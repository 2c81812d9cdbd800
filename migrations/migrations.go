// Package migrations embeds the SQL schema.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Up returns the contents of every up migration in version order.
func Up() ([]string, error) {
	return collect(".up.sql", false)
}

// Down returns the contents of every down migration in reverse version order.
func Down() ([]string, error) {
	return collect(".down.sql", true)
}

func collect(suffix string, reverse bool) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
	}

	scripts := make([]string, 0, len(names))
	for _, name := range names {
		b, err := fs.ReadFile(files, name)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, string(b))
	}
	return scripts, nil
}
