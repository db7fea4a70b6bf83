package indexjob

import (
	"strings"

	"github.com/cindexd/cindexd/internal/clangidx"
	"github.com/cindexd/cindexd/internal/cursorinfo"
)

// hasTemplateAnglesKind lists the scope-frame kinds whose display name may
// carry template angle brackets worth stripping into a separate
// "template-bareform" permutation.
func hasTemplateAnglesKind(k cursorinfo.Kind) bool {
	switch k {
	case cursorinfo.KindClassTemplate, cursorinfo.KindConstructor, cursorinfo.KindDestructor:
		return true
	default:
		return false
	}
}

// Permutations synthesizes the qualified/unqualified name forms
// from a declaration's semantic-parent scope chain
// (innermost frame first): at each scope level, the qualified name with
// its parameter list, the same name with the parameter list stripped, and
// - for kinds that can carry template angle brackets - both of those again
// with the "<...>" region removed. The outermost frame's bare display
// name is always included too ("ns" for "ns::Foo::bar(int)"). A lookup
// for just "bar" matches that declaration through the innermost level's
// parameter-stripped form.
func Permutations(chain []clangidx.ScopeFrame) []string {
	if len(chain) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	var qualifiedWithParams, qualifiedNoParams string
	for i, frame := range chain {
		name := frame.DisplayName
		if name == "" {
			break
		}

		if i == 0 {
			qualifiedWithParams = name
			if paren := strings.IndexByte(name, '('); paren != -1 {
				qualifiedNoParams = name[:paren]
			}
		} else {
			qualifiedWithParams = name + "::" + qualifiedWithParams
			if qualifiedNoParams != "" {
				qualifiedNoParams = name + "::" + qualifiedNoParams
			}
		}

		templated := hasTemplateAnglesKind(frame.Kind)
		addWithTemplateBareform(add, qualifiedWithParams, templated)
		if qualifiedNoParams != "" {
			addWithTemplateBareform(add, qualifiedNoParams, templated)
		}
	}

	add(chain[len(chain)-1].DisplayName)

	return out
}

// addWithTemplateBareform registers name and, when templated is set and
// name contains a "<...>" region, a second copy with that region removed.
func addWithTemplateBareform(add func(string), name string, templated bool) {
	add(name)
	if !templated {
		return
	}

	lt := strings.IndexByte(name, '<')
	if lt == -1 {
		return
	}
	rest := name[lt+1:]
	gt := strings.IndexByte(rest, '>')
	if gt == -1 {
		return
	}
	gt += lt + 1

	var bare string
	if gt+1 == len(name) {
		bare = name[:lt]
	} else {
		bare = name[:lt] + name[gt+1:]
	}
	add(bare)
}
