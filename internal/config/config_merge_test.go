package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeConfigs_ExclusionsMerge(t *testing.T) {
	base := &Config{
		Exclude: []string{
			"**/node_modules/**",
			"**/vendor/**",
			"**/real_projects/**",
		},
	}

	project := &Config{
		Exclude: []string{
			"**/dist/**",
			"**/build/**",
		},
	}

	merged := mergeConfigs(base, project)

	assert.Contains(t, merged.Exclude, "**/node_modules/**")
	assert.Contains(t, merged.Exclude, "**/vendor/**")
	assert.Contains(t, merged.Exclude, "**/real_projects/**")
	assert.Contains(t, merged.Exclude, "**/dist/**")
	assert.Contains(t, merged.Exclude, "**/build/**")
	assert.Len(t, merged.Exclude, 5)
}

func TestMergeConfigs_ExclusionsDeduplication(t *testing.T) {
	base := &Config{
		Exclude: []string{
			"**/node_modules/**",
			"**/vendor/**",
		},
	}

	project := &Config{
		Exclude: []string{
			"**/node_modules/**", // duplicate
			"**/dist/**",
		},
	}

	merged := mergeConfigs(base, project)

	assert.Len(t, merged.Exclude, 3)
	assert.Contains(t, merged.Exclude, "**/node_modules/**")
	assert.Contains(t, merged.Exclude, "**/vendor/**")
	assert.Contains(t, merged.Exclude, "**/dist/**")
}

func TestMergeConfigs_InclusionsProjectOverride(t *testing.T) {
	base := &Config{Include: []string{"*.c", "*.h"}}
	project := &Config{Include: []string{"*.cc", "*.hh"}}

	merged := mergeConfigs(base, project)

	assert.Equal(t, project.Include, merged.Include)
	assert.Len(t, merged.Include, 2)
}

func TestMergeConfigs_InclusionsUseBaseIfProjectEmpty(t *testing.T) {
	base := &Config{Include: []string{"*.c", "*.h"}}
	project := &Config{Include: []string{}}

	merged := mergeConfigs(base, project)

	assert.Equal(t, base.Include, merged.Include)
}

func TestMergeConfigs_ProjectSettingsTakePrecedence(t *testing.T) {
	base := &Config{Jobs: Jobs{Workers: 2}}
	project := &Config{Jobs: Jobs{Workers: 16}}

	merged := mergeConfigs(base, project)

	assert.Equal(t, 16, merged.Jobs.Workers)
}

func TestMergeConfigs_EmptyBaseExclusions(t *testing.T) {
	base := &Config{Exclude: []string{}}
	project := &Config{Exclude: []string{"**/dist/**"}}

	merged := mergeConfigs(base, project)

	assert.Equal(t, project.Exclude, merged.Exclude)
}

func withHome(t *testing.T, dir string) {
	t.Helper()
	original := os.Getenv("HOME")
	os.Setenv("HOME", dir)
	t.Cleanup(func() { os.Setenv("HOME", original) })
}

func TestLoadWithRoot_MergesGlobalAndProjectConfigs(t *testing.T) {
	tmpHome := t.TempDir()
	tmpProject := t.TempDir()

	globalConfig := `
exclude {
    "**/node_modules/**"
    "**/vendor/**"
    "**/real_projects/**"
}

jobs { workers 2 }
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpHome, ".cindexd.kdl"), []byte(globalConfig), 0644))

	projectConfig := `
project {
    root "."
    name "test-project"
}

exclude {
    "**/dist/**"
    "**/build/**"
}

jobs { workers 16 }
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpProject, ".cindexd.kdl"), []byte(projectConfig), 0644))

	withHome(t, tmpHome)

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
	assert.Contains(t, cfg.Exclude, "**/vendor/**")
	assert.Contains(t, cfg.Exclude, "**/real_projects/**")
	assert.Contains(t, cfg.Exclude, "**/dist/**")
	assert.Contains(t, cfg.Exclude, "**/build/**")

	assert.Equal(t, 16, cfg.Jobs.Workers)
	assert.Equal(t, "test-project", cfg.Project.Name)
}

func TestLoadWithRoot_ProjectConfigOnly(t *testing.T) {
	tmpProject := t.TempDir()

	projectConfig := `
project {
    root "."
    name "test-project"
}

exclude {
    "**/dist/**"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpProject, ".cindexd.kdl"), []byte(projectConfig), 0644))

	withHome(t, "/nonexistent")

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Contains(t, cfg.Exclude, "**/dist/**")
	assert.Equal(t, "test-project", cfg.Project.Name)
}

func TestLoadWithRoot_GlobalConfigOnly(t *testing.T) {
	tmpHome := t.TempDir()
	tmpProject := t.TempDir()

	globalConfig := `
exclude {
    "**/node_modules/**"
    "**/real_projects/**"
}
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpHome, ".cindexd.kdl"), []byte(globalConfig), 0644))

	withHome(t, tmpHome)

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
	assert.Contains(t, cfg.Exclude, "**/real_projects/**")
}

func TestLoadWithRoot_DefaultConfigFallback(t *testing.T) {
	tmpProject := t.TempDir()
	withHome(t, "/nonexistent")

	cfg, err := LoadWithRoot("", tmpProject)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.NotEmpty(t, cfg.Exclude)
	assert.Empty(t, cfg.Include)
}

func TestMergeConfigs_PreservesBaseExclusionsInTests(t *testing.T) {
	base := &Config{
		Exclude: []string{
			"**/real_projects/**",
			"**/testing/**",
			"**/testdata/**",
		},
	}

	project := &Config{
		Project: Project{Name: "test-project"},
		Exclude: []string{},
	}

	merged := mergeConfigs(base, project)

	assert.Contains(t, merged.Exclude, "**/real_projects/**")
	assert.Contains(t, merged.Exclude, "**/testing/**")
	assert.Contains(t, merged.Exclude, "**/testdata/**")
}
