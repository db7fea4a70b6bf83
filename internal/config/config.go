// Package config loads a project's .cindexd.kdl configuration: which
// worker count to run the scheduler at, where the store lives, which
// paths the watcher covers, the watcher's debounce interval, and
// whether the watcher should also honor the project's .gitignore.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config is one project's fully-resolved configuration.
type Config struct {
	Version int
	Project Project
	Jobs    Jobs
	Store   Store
	Watch   Watch
	Include []string
	Exclude []string
}

// Project identifies the indexed source tree.
type Project struct {
	Root string
	Name string
}

// Jobs controls the scheduler's worker pool.
type Jobs struct {
	Workers int // 0 = auto-detect (NumCPU)
}

// Store controls where the bbolt database file lives.
type Store struct {
	Dir string // directory holding index.db, relative to Project.Root unless absolute
}

// Watch controls the filesystem watcher.
type Watch struct {
	Enabled          bool
	DebounceMs       int
	RespectGitignore bool
}

// Load loads configuration for the project whose `.cindexd.kdl` is at
// path, consulting both a global `~/.cindexd.kdl` and the project-local
// `.cindexd.kdl` in path's directory. Only the directory of path is
// used: the file read there is always named `.cindexd.kdl`.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads configuration, using rootDir (if non-empty) as the
// directory to search for a project-local `.cindexd.kdl` instead of
// path's directory.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	} else if path != "" {
		searchDir = filepath.Dir(path)
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	var projectConfig *Config
	kdlCfg, err := LoadKDL(searchDir)
	if err != nil {
		return nil, err
	}
	if kdlCfg != nil {
		projectConfig = kdlCfg
	}

	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return defaultConfig(cwd), nil
}

func defaultConfig(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Jobs:    Jobs{Workers: runtime.NumCPU()},
		Store:   Store{Dir: ".cindexd"},
		Watch: Watch{
			Enabled:          true,
			DebounceMs:       300,
			RespectGitignore: true,
		},
		Include: []string{},
		Exclude: defaultExclusions(),
	}
}

// mergeConfigs merges a base (e.g. user-global) config with a
// project-local config. The project config takes precedence for every
// field except exclusions, which are unioned so a global exclusion
// list is never silently dropped by a project's own .cindexd.kdl.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		seen := make(map[string]bool, len(base.Exclude)+len(project.Exclude))
		merged.Exclude = make([]string, 0, len(base.Exclude)+len(project.Exclude))
		for _, pattern := range base.Exclude {
			if !seen[pattern] {
				seen[pattern] = true
				merged.Exclude = append(merged.Exclude, pattern)
			}
		}
		for _, pattern := range project.Exclude {
			if !seen[pattern] {
				seen[pattern] = true
				merged.Exclude = append(merged.Exclude, pattern)
			}
		}
	}

	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}

	return &merged
}

// defaultExclusions is the built-in glob set for a C/C++ source tree:
// version control metadata, build directories, and compiled artifacts
// that are never themselves translation units.
func defaultExclusions() []string {
	return []string{
		"**/.git/**",
		"**/.cindexd/**",
		"**/build/**",
		"**/cmake-build-*/**",
		"**/CMakeFiles/**",
		"**/out/**",
		"**/bin/**",
		"**/.vs/**",
		"**/Debug/**",
		"**/Release/**",
		"**/*.o",
		"**/*.obj",
		"**/*.a",
		"**/*.lib",
		"**/*.so",
		"**/*.so.*",
		"**/*.dylib",
		"**/*.dll",
		"**/*.exe",
		"**/*.pch",
		"**/*.gch",
	}
}
