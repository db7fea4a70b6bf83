package clangidx

import "github.com/go-clang/v3.9/clang"

// Inclusions walks the translation unit's #include graph, translated from
// IndexerJob::inclusionVisitor: for every included file, reports the
// including file (or the file itself, when includeLen is zero - a
// top-level file indexing its own dependency-on-self entry) paired with
// the file it depends on.
func (tu *TranslationUnit) Inclusions() []Dependency {
	var deps []Dependency

	tu.tu.GetInclusions(func(includedFile clang.File, includeStack []clang.SourceLocation) {
		toID := tu.fileID(includedFile.FileName())
		if toID == 0 {
			return
		}

		if len(includeStack) == 0 {
			deps = append(deps, Dependency{From: toID, To: toID})
			return
		}

		for _, loc := range includeStack {
			originatingFile, _, _, _ := loc.SpellingLocation()
			fromID := tu.fileID(originatingFile.FileName())
			if fromID == 0 {
				continue
			}
			deps = append(deps, Dependency{From: fromID, To: toID})
		}
	})

	return deps
}
