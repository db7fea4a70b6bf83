// Package messages models the wire records that cross the boundary
// between a client and a running project: compile-argument records in,
// query requests in, diagnostic and answer records out. Message models
// polymorphic dispatch (query vs compile vs create-output) as a tagged
// variant {Compile, Query, CreateOutput, Completion}: one Kind field
// plus five optional payloads, switched on rather than dispatched
// through an interface hierarchy the way a Message/Job class tree
// would do it.
package messages

import "time"

// Kind selects which payload field of a Message is populated.
type Kind int

const (
	KindCompile Kind = iota
	KindQuery
	KindCreateOutput
	KindCompletion
)

func (k Kind) String() string {
	switch k {
	case KindCompile:
		return "compile"
	case KindQuery:
		return "query"
	case KindCreateOutput:
		return "output"
	case KindCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// CompileMessage carries one discovered compile command: it arrives
// for each compile command observed.
type CompileMessage struct {
	Path string   `json:"path"`
	Args []string `json:"args"`
}

// QueryKind selects which of the four read-only traversals
// internal/query exposes, or the project status, a QueryMessage is
// asking for.
type QueryKind int

const (
	QueryFollowLocation QueryKind = iota
	QueryReferencesForName
	QueryListSymbols
	QueryValidateDB
	QueryStatus
)

func (k QueryKind) String() string {
	switch k {
	case QueryFollowLocation:
		return "follow-location"
	case QueryReferencesForName:
		return "references-for-name"
	case QueryListSymbols:
		return "list-symbols"
	case QueryValidateDB:
		return "validate-db"
	case QueryStatus:
		return "status"
	default:
		return "unknown"
	}
}

// QueryFlags mirrors the handful of query-shaping flags
// ReferencesJob.cpp/FindSymbolsJob.cpp read off QueryMessage::flags,
// narrowed to the ones internal/query actually implements.
type QueryFlags struct {
	ReverseSort                      bool `json:"reverseSort,omitempty"`
	IncludeDeclarationsAndDefinitions bool `json:"includeDeclarationsAndDefinitions,omitempty"`
}

// QueryMessage carries one read request: kind, query, flags, projects,
// pathFilters, and max arrive together for each read.
type QueryMessage struct {
	Kind        QueryKind  `json:"kind"`
	Query       string     `json:"query"`
	Flags       QueryFlags `json:"flags"`
	Projects    []string   `json:"projects,omitempty"`
	PathFilters []string   `json:"pathFilters,omitempty"`
	Max         int        `json:"max,omitempty"`
}

// Diagnostic is one compile-time diagnostic batch reported back to the
// client after a parse, mirroring what internal/diagnostics.Cache
// replays for a file.
type Diagnostic struct {
	Path     string   `json:"path"`
	Messages []string `json:"messages,omitempty"`
}

// Answer carries the rows one query produced. Exactly the field or
// fields matching the originating QueryMessage.Kind are populated:
// Locations (with Paths alongside, same index) for
// follow-location/references-for-name, Names for list-symbols,
// Violations for validate-db.
type Answer struct {
	Locations []string `json:"locations,omitempty"`
	// Paths holds, for each entry in Locations at the same index, the
	// source file it resolves to, rendered relative to the project
	// root.
	Paths      []string `json:"paths,omitempty"`
	Names      []string `json:"names,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// CompletionMessage reports one scheduler quiescence firing:
// QuiescenceStats surfaced over the wire.
type CompletionMessage struct {
	JobsRun int           `json:"jobsRun"`
	Elapsed time.Duration `json:"elapsedNanos"`
}

// Message is the tagged variant every client request and server
// response travels as. Exactly one of Compile, Query, Diagnostic,
// Answer, Completion is set, selected by Kind; KindCreateOutput
// carries either Diagnostic or Answer (never both) depending on
// whether the output is a compile-time diagnostic or a query result
// row.
type Message struct {
	Kind       Kind               `json:"kind"`
	Compile    *CompileMessage    `json:"compile,omitempty"`
	Query      *QueryMessage      `json:"query,omitempty"`
	Diagnostic *Diagnostic        `json:"diagnostic,omitempty"`
	Answer     *Answer            `json:"answer,omitempty"`
	Completion *CompletionMessage `json:"completion,omitempty"`
}

// NewCompile wraps a CompileMessage as a tagged Message.
func NewCompile(path string, args []string) Message {
	return Message{Kind: KindCompile, Compile: &CompileMessage{Path: path, Args: args}}
}

// NewQuery wraps a QueryMessage as a tagged Message.
func NewQuery(q QueryMessage) Message {
	return Message{Kind: KindQuery, Query: &q}
}

// NewDiagnosticOutput wraps a Diagnostic as a tagged output Message.
func NewDiagnosticOutput(d Diagnostic) Message {
	return Message{Kind: KindCreateOutput, Diagnostic: &d}
}

// NewAnswerOutput wraps an Answer as a tagged output Message.
func NewAnswerOutput(a Answer) Message {
	return Message{Kind: KindCreateOutput, Answer: &a}
}

// NewCompletion wraps a CompletionMessage as a tagged Message.
func NewCompletion(jobsRun int, elapsed time.Duration) Message {
	return Message{Kind: KindCompletion, Completion: &CompletionMessage{JobsRun: jobsRun, Elapsed: elapsed}}
}
