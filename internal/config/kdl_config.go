package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a project's .cindexd.kdl
// file. Returns (nil, nil) if no such file exists.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".cindexd.kdl")

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading .cindexd.kdl")
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Resolve Project.Root relative to the directory the .cindexd.kdl
	// file lives in, so a relative "root" node means "relative to this
	// config file" rather than "relative to the process cwd".
	if cfg.Project.Root != "" {
		if filepath.IsAbs(cfg.Project.Root) {
			cfg.Project.Root = filepath.Clean(cfg.Project.Root)
		} else {
			cfg.Project.Root = filepath.Clean(filepath.Join(projectRoot, cfg.Project.Root))
		}
	} else if abs, err := filepath.Abs(projectRoot); err == nil {
		cfg.Project.Root = abs
	} else {
		cfg.Project.Root = projectRoot
	}

	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	defaultRoot, err := os.Getwd()
	if err != nil {
		defaultRoot = "."
	}
	cfg := defaultConfig(defaultRoot)
	cfg.Exclude = []string{} // a .cindexd.kdl file starts from a clean exclusion slate

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "parsing .cindexd.kdl")
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "jobs":
			if v, ok := firstIntArg(n); ok {
				cfg.Jobs.Workers = v
			}
			for _, cn := range n.Children {
				if nodeName(cn) == "workers" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Jobs.Workers = v
					}
				}
			}
		case "store":
			for _, cn := range n.Children {
				if nodeName(cn) == "dir" {
					if s, ok := firstStringArg(cn); ok {
						cfg.Store.Dir = s
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				case "respect_gitignore":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.RespectGitignore = b
					}
				}
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "exclude":
			cfg.Exclude = append(cfg.Exclude, collectStringArgs(n)...)
		}
	}

	if len(cfg.Exclude) == 0 {
		cfg.Exclude = defaultExclusions()
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block format: exclude { "pattern" ; "pattern2" } parses each
	// pattern as a child node whose own name is the string value.
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
