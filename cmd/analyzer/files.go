package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// resolveInputs expands the positional arguments into a sorted, deduplicated
// file list. Directories are walked recursively and only files whose base
// name matches pattern are kept; named files are always kept. walked reports
// whether any directory was expanded.
func resolveInputs(args []string, pattern string) (files []string, walked bool, err error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, false, fmt.Errorf("invalid glob %q: %w", pattern, err)
	}

	seen := make(map[string]bool)
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, false, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		walked = true
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && g.Match(d.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, false, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	sort.Strings(files)
	return files, walked, nil
}
