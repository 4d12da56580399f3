package oxifuj

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/aleksaelezovic/oxifuj/internal/cancel"
	"github.com/aleksaelezovic/oxifuj/internal/qerror"
	"github.com/aleksaelezovic/oxifuj/internal/results"
)

// HTTPServer is a minimal SPARQL 1.1 Protocol endpoint over a Store
// (§6.4's "produced" interface, the listener half of §6.6's serve /
// serve-read-only CLI commands). The HTTP server is named in §1 as an
// external collaborator; this is the thin listener the CLI surface
// needs to exist at all, not a full-featured SPARQL service (no CORS
// preflight web UI, no multipart dataset upload).
//
// Grounded in the teacher's internal/server/server.go: a single
// /sparql handler dispatching on method and Content-Type, log.Printf
// diagnostics, and the stdlib net/http server the teacher itself uses
// rather than a third-party HTTP framework (none of the retrieval
// pack's repos pull one in for this role).
type HTTPServer struct {
	store    *Store
	writable bool
}

// NewHTTPServer wraps store behind a SPARQL 1.1 Protocol listener.
// writable selects whether the update endpoint is enabled, matching
// serve vs. serve-read-only's distinction.
func NewHTTPServer(store *Store, writable bool) *HTTPServer {
	return &HTTPServer{store: store, writable: writable}
}

// ListenAndServe blocks serving SPARQL requests on addr until the
// listener fails.
func (s *HTTPServer) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/sparql", s.handleSPARQL)
	if s.writable {
		mux.HandleFunc("/update", s.handleUpdate)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

// handleSPARQL implements the query operation of the SPARQL 1.1
// Protocol: GET ?query=, POST application/sparql-query, or POST
// application/x-www-form-urlencoded.
func (s *HTTPServer) handleSPARQL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	queryString, err := extractParam(r, "query")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if queryString == "" {
		writeError(w, http.StatusBadRequest, qerror.New(qerror.KindParseError, "missing query parameter"))
		return
	}

	res, err := s.store.Query(r.Context(), queryString, QueryOptions{})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	defer res.Close()

	switch res.Kind {
	case ResultBoolean:
		writeJSON(w, fmt.Sprintf(`{"head":{},"boolean":%t}`, res.Boolean))
	case ResultGraph:
		w.Header().Set("Content-Type", "application/n-quads; charset=utf-8")
		for _, t := range res.Graph {
			fmt.Fprintln(w, t.String())
		}
	case ResultSolutions:
		body, err := jsonResults(r.Context(), res)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "application/sparql-results+json")
		w.Write(body)
	}
}

// handleUpdate implements the SPARQL 1.1 Protocol's update operation,
// only registered when the server was opened read-write.
func (s *HTTPServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, qerror.New(qerror.KindUnsupportedFeature, "update requires POST"))
		return
	}
	updateString, err := extractParam(r, "update")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.Update(r.Context(), updateString, nil); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func extractParam(r *http.Request, name string) (string, error) {
	switch r.Method {
	case http.MethodGet:
		return r.URL.Query().Get(name), nil
	case http.MethodPost:
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(ct, "application/sparql-query"), strings.Contains(ct, "application/sparql-update"):
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", qerror.Wrap(qerror.KindParseError, err, "failed to read request body")
			}
			return string(body), nil
		case strings.Contains(ct, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err != nil {
				return "", qerror.Wrap(qerror.KindParseError, err, "failed to parse form")
			}
			return r.FormValue(name), nil
		default:
			body, err := io.ReadAll(r.Body)
			if err != nil {
				return "", qerror.Wrap(qerror.KindParseError, err, "failed to read request body")
			}
			return string(body), nil
		}
	default:
		return "", qerror.New(qerror.KindUnsupportedFeature, "method not allowed, use GET or POST")
	}
}

func jsonResults(ctx context.Context, res *QueryResults) ([]byte, error) {
	return results.WriteSelectJSON(cancel.New(ctx), res.Solutions)
}

func statusFor(err error) int {
	switch {
	case qerror.Is(err, qerror.KindParseError), qerror.Is(err, qerror.KindUnsupportedFeature), qerror.Is(err, qerror.KindTypeError):
		return http.StatusBadRequest
	case qerror.Is(err, qerror.KindQueryTimeout):
		return http.StatusGatewayTimeout
	case qerror.Is(err, qerror.KindCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.Println(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintln(w, err.Error())
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/sparql-results+json")
	fmt.Fprint(w, body)
}
