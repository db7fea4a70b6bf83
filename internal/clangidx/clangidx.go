// Package clangidx wraps github.com/go-clang/v3.9/clang so the rest of the
// tree never touches libclang's C types directly: internal/indexjob drives
// one translation unit through Index.IndexSourceFile and gets back Go
// structs and closures instead of CXCursor/CXIdxDeclInfo values and
// C-style callbacks.
package clangidx

import (
	"github.com/go-clang/v3.9/clang"
	"github.com/pkg/errors"

	"github.com/cindexd/cindexd/internal/location"
)

// defaultOptions are the clang_indexSourceFile options this indexer
// runs with: index symbols local to a function body, and index implicit
// template instantiations so template member symbols show up too.
const defaultOptions = uint32(clang.IndexOpt_IndexFunctionLocalSymbols | clang.IndexOpt_IndexImplicitTemplateInstantiations)

// FileIDFunc resolves a translation unit's file path to this tree's
// stable uint32 file id, normally backed by an *internal/fileid.Registry.
// clangidx stays dependency-free of internal/fileid by taking this as a
// plain function value instead of importing the registry type.
type FileIDFunc func(path string) uint32

// Index wraps a libclang index: the container clang parses and indexes
// translation units through.
type Index struct {
	idx     clang.Index
	fileID  FileIDFunc
	options uint32
}

// NewIndex creates an Index. excludeDeclarationsFromPCH is disabled and
// diagnostic display from libclang itself is disabled since diagnostics are
// read back and formatted by this tree's own diagnostics cache.
func NewIndex(fileID FileIDFunc) *Index {
	return &Index{
		idx:     clang.NewIndex(0, 0),
		fileID:  fileID,
		options: defaultOptions,
	}
}

// Dispose releases the underlying libclang index. Every TranslationUnit
// produced by this Index must be disposed first.
func (ix *Index) Dispose() {
	ix.idx.Dispose()
}

// IndexSourceFile parses path with the given compiler arguments and walks
// the resulting translation unit, invoking cb for every declaration and
// entity reference clang_indexSourceFile reports. This is the Go-closure
// equivalent of IndexerJob::parse wiring up IndexerCallbacks.
func (ix *Index) IndexSourceFile(path string, args []string, cb Callbacks) (*TranslationUnit, error) {
	action := ix.idx.NewIndexAction()
	defer action.Dispose()

	locate := func(f clang.File, offset uint32) location.Location {
		if f.IsNull() {
			return location.Null
		}
		fid := ix.fileID(f.FileName())
		if fid == 0 {
			return location.Null
		}
		return location.New(fid, offset)
	}

	callbacks := clang.IndexerCallbacks{}
	callbacks.IndexDeclaration = func(_ clang.IndexClientContainer, d clang.IdxDeclInfo) {
		onDeclaration(d, locate, cb.OnDeclaration)
	}
	callbacks.IndexEntityReference = func(_ clang.IndexClientContainer, r clang.IdxEntityRefInfo) {
		onEntityReference(r, locate, cb.OnEntityReference)
	}

	tu, errCode := action.IndexSourceFile(
		nil,
		callbacks,
		uint32(0),
		ix.options,
		path,
		args,
		nil,
		clang.DefaultEditingTranslationUnitOptions(),
	)
	if clang.ErrorCode(errCode) != clang.Error_Success {
		return nil, errors.Errorf("indexing %s: %s", path, clang.ErrorCode(errCode).Spelling())
	}

	return &TranslationUnit{tu: tu, fileID: ix.fileID}, nil
}

// TranslationUnit wraps a parsed/indexed libclang translation unit.
type TranslationUnit struct {
	tu     clang.TranslationUnit
	fileID FileIDFunc
}

// Dispose releases the underlying libclang translation unit.
func (tu *TranslationUnit) Dispose() {
	tu.tu.Dispose()
}
