package clangidx

import (
	"github.com/go-clang/v3.9/clang"

	"github.com/cindexd/cindexd/internal/location"
)

// Diagnostics reads back every diagnostic libclang attached to the
// translation unit, translated from IndexerJob::diagnose. The bool return
// reports whether any diagnostic was an error or worse, matching the
// original's hasCompilationErrors tracking.
func (tu *TranslationUnit) Diagnostics() ([]Diagnostic, []FixIt, bool) {
	count := tu.tu.NumDiagnostics()
	diags := make([]Diagnostic, 0, count)
	var fixIts []FixIt
	hasErrors := false

	locate := func(f clang.File, offset uint32) location.Location {
		if f.IsNull() {
			return location.Null
		}
		fid := tu.fileID(f.FileName())
		if fid == 0 {
			return location.Null
		}
		return location.New(fid, offset)
	}

	for i := uint32(0); i < count; i++ {
		d := tu.tu.Diagnostic(i)

		sev := mapSeverity(d.Severity())
		if sev == SeverityError || sev == SeverityFatal {
			hasErrors = true
		}

		f, _, _, offset := d.Location().SpellingLocation()
		loc := locate(f, offset)

		opts := uint32(clang.Diagnostic_DisplaySourceLocation |
			clang.Diagnostic_DisplayColumn |
			clang.Diagnostic_DisplaySourceRanges |
			clang.Diagnostic_DisplayOption |
			clang.Diagnostic_DisplayCategoryId |
			clang.Diagnostic_DisplayCategoryName)

		diags = append(diags, Diagnostic{
			Location: loc,
			Severity: sev,
			Message:  d.Spelling(opts),
		})

		numFixIts := d.NumFixIts()
		for fi := uint32(0); fi < numFixIts; fi++ {
			var rng clang.SourceRange
			replacement := d.FixIt(fi, &rng)

			startFile, _, _, startOffset := rng.Start().SpellingLocation()
			start := locate(startFile, startOffset)
			_, _, _, endOffset := rng.End().SpellingLocation()

			fixIts = append(fixIts, FixIt{
				Start:       start,
				RemoveBytes: int(endOffset) - start.Offset(),
				Replacement: replacement,
			})
		}

		d.Dispose()
	}

	return diags, fixIts, hasErrors
}

func mapSeverity(s clang.DiagnosticSeverity) Severity {
	switch s {
	case clang.Diagnostic_Note:
		return SeverityNote
	case clang.Diagnostic_Warning:
		return SeverityWarning
	case clang.Diagnostic_Error:
		return SeverityError
	case clang.Diagnostic_Fatal:
		return SeverityFatal
	default:
		return SeverityIgnored
	}
}
