package project

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/cindexd/cindexd/internal/debug"
	"github.com/cindexd/cindexd/internal/fileid"
	"github.com/cindexd/cindexd/internal/idcodec"
	"github.com/cindexd/cindexd/internal/location"
	"github.com/cindexd/cindexd/internal/messages"
	"github.com/cindexd/cindexd/pkg/pathutil"
)

// Server exposes one Project's query jobs over a Unix-socket HTTP
// API, grounded on internal/server.IndexServer (same
// net.Listen("unix", ...), os.Chmod(socketPath, 0600), http.ServeMux,
// tracked-goroutine Serve pattern) but restyled around this tree's
// four query kinds (follow-location, references-for-name,
// list-symbols, validate-db) plus status/compile/shutdown, instead of
// a search/tree/git-analyze/MCP surface.
type Server struct {
	Project *Project

	socketPath string
	listener   net.Listener
	http       *http.Server
	wg         sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// SocketPathForRoot derives a deterministic per-project socket path
// from root's absolute path, so multiple projects can run servers
// simultaneously without colliding. Grounded on GetSocketPathForRoot,
// which hashes the root path with a hand-rolled polynomial hash; this
// rebuild uses xxhash.Sum64String instead.
func SocketPathForRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	sum := xxhash.Sum64String(abs)
	return filepath.Join(os.TempDir(), fmt.Sprintf("cindexd-%016x.sock", sum))
}

// NewServer wraps p behind a control API listening on socketPath. An
// empty socketPath derives one from p.Root via SocketPathForRoot.
func NewServer(p *Project, socketPath string) *Server {
	if socketPath == "" {
		socketPath = SocketPathForRoot(p.Root)
	}
	return &Server{Project: p, socketPath: socketPath}
}

// SocketPath returns the Unix socket this server listens, or will
// listen, on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start removes any stale socket file, binds the Unix listener, and
// begins serving in a tracked background goroutine. It returns once
// the listener is bound; callers that need to block until shutdown
// should call Wait.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	_ = os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.socketPath, err)
	}
	s.listener = listener
	_ = os.Chmod(s.socketPath, 0600)

	mux := http.NewServeMux()
	s.registerHandlers(mux)
	s.http = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.http.Serve(listener); err != nil && err != http.ErrServerClosed {
			debug.LogWatch("control server error: %v", err)
		}
	}()

	debug.LogIndex("control server listening on %s (pid %d)", s.socketPath, os.Getpid())
	return nil
}

// Shutdown stops accepting connections, waits for the serving
// goroutine to return, and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	_ = os.Remove(s.socketPath)
	return nil
}

func (s *Server) registerHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ping", s.handlePing)
	mux.HandleFunc("/compile", s.handleCompile)
	mux.HandleFunc("/query", s.handleQuery)
	mux.HandleFunc("/shutdown", s.handleShutdown)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stat := s.Project.Stat()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stat)
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var msg messages.CompileMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	jobID := s.Project.Compile(msg.Path, msg.Args)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"jobId": jobID})
}

// handleQuery runs one of the four read-only query kinds, or a status
// query, and encodes
// the result as a messages.Answer. Every job checks context
// cancellation from the request's own deadline, honoring cancellation
// between emitted rows without any query-specific timeout plumbing.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var q messages.QueryMessage
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cancel := func() bool {
		select {
		case <-r.Context().Done():
			return true
		default:
			return false
		}
	}

	answer, err := s.runQuery(q, cancel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(answer)
}

func (s *Server) runQuery(q messages.QueryMessage, cancel func() bool) (messages.Answer, error) {
	switch q.Kind {
	case messages.QueryFollowLocation:
		loc, err := parseLocation(q.Query)
		if err != nil {
			return messages.Answer{}, err
		}
		target, found, err := s.Project.Query.FollowLocation(loc)
		if err != nil {
			return messages.Answer{}, err
		}
		if !found {
			return messages.Answer{}, nil
		}
		return messages.Answer{
			Locations: []string{formatLocation(target)},
			Paths:     s.formatPaths([]location.Location{target}),
		}, nil

	case messages.QueryReferencesForName:
		refs, err := s.Project.Query.ReferencesForName(q.Query, cancel)
		if err != nil {
			return messages.Answer{}, err
		}
		return messages.Answer{
			Locations: formatLocations(refs),
			Paths:     s.formatPaths(refs),
		}, nil

	case messages.QueryListSymbols:
		names, err := s.Project.Query.ListSymbols(q.Query, cancel)
		if err != nil {
			return messages.Answer{}, err
		}
		return messages.Answer{Names: names}, nil

	case messages.QueryValidateDB:
		report, err := s.Project.Query.ValidateDB(cancel)
		if err != nil {
			return messages.Answer{}, err
		}
		violations := make([]string, 0, len(report.Violations))
		for _, v := range report.Violations {
			violations = append(violations, fmt.Sprintf("%d:%d: %s", v.FileID, v.Offset, v.Reason))
		}
		return messages.Answer{Violations: violations}, nil

	case messages.QueryStatus:
		stat := s.Project.Stat()
		return messages.Answer{Names: []string{fmt.Sprintf("%+v", stat)}}, nil

	default:
		return messages.Answer{}, fmt.Errorf("unknown query kind %v", q.Kind)
	}
}

// handleShutdown acknowledges the request, then tears the project
// down a moment later on a separate goroutine so the response body
// reaches the client before the listener closes.
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})

	go func() {
		time.Sleep(100 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
		_ = s.Project.Close()
	}()
}

// parseLocation decodes a client-supplied location id. The primary
// form is idcodec's base-63 encoding, the same encoding formatLocation
// hands back; the base-63 alphabet never contains ':', so a string
// that fails to decode is retried as a raw "fileID:offset" pair for
// callers that built one by hand.
func parseLocation(s string) (location.Location, error) {
	if loc, err := idcodec.DecodeLocation(s); err == nil {
		return loc, nil
	}

	var fileID, offset uint32
	if _, err := fmt.Sscanf(s, "%d:%d", &fileID, &offset); err != nil {
		return location.Location(0), fmt.Errorf("invalid location %q: %w", s, err)
	}
	return location.New(fileID, offset), nil
}

// formatLocation renders a Location as the base-63 id a client passes
// back to a later query (e.g. to re-issue follow-location on the
// answer it just received).
func formatLocation(l location.Location) string {
	return idcodec.EncodeLocation(l)
}

func formatLocations(locs []location.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = formatLocation(l)
	}
	return out
}

// formatPaths resolves each location's file id to a path through the
// project's registry, rendered relative to the project root -- the
// source-file counterpart to formatLocations' encoded offsets.
func (s *Server) formatPaths(locs []location.Location) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		path, ok := s.Project.Registry.Path(fileid.ID(l.FileID()))
		if !ok {
			continue
		}
		out[i] = pathutil.ToRelative(path, s.Project.Root)
	}
	return out
}
