package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"feedvault/internal/cache"
	"feedvault/internal/ingest"
	"feedvault/internal/matcher"
	"feedvault/internal/model"
	"feedvault/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Executor runs fn on the goroutine that owns the archive.
type Executor interface {
	Do(ctx context.Context, fn func() error) error
}

// Archive is what the API needs from the backend: the read view plus the commit lifecycle.
type Archive interface {
	store.Reader
	Commit() error
	Rollback() error
}

type Server struct {
	archive  Archive
	writer   ingest.Writer
	exec     Executor
	cache    *cache.Manager
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	router   *mux.Router
	server   *http.Server
}

func NewServer(archive Archive, writer ingest.Writer, exec Executor, c *cache.Manager, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		archive:  archive,
		writer:   writer,
		exec:     exec,
		cache:    c,
		gatherer: gatherer,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/feeds", s.handleFeeds).Methods("GET")
	s.router.HandleFunc("/articles", s.handleArticles).Methods("GET")
	s.router.HandleFunc("/article", s.handleArticle).Methods("GET")
	s.router.HandleFunc("/article", s.handlePurge).Methods("DELETE")
	s.router.HandleFunc("/article/status", s.handleStatus).Methods("POST")
	s.router.HandleFunc("/article/keep", s.handleKeep).Methods("POST")
	s.router.HandleFunc("/article/delete", s.handleDelete).Methods("POST")
	s.router.HandleFunc("/commit", s.handleCommit).Methods("POST")
	s.router.HandleFunc("/rollback", s.handleRollback).Methods("POST")
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start launches the HTTP server. It returns nil once Stop has been called,
// even when Stop ran first.
func (s *Server) Start(addr string) error {
	s.server.Addr = addr
	s.logger.Info("Web server listening", zap.String("addr", addr))
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleFeeds(w http.ResponseWriter, r *http.Request) {
	var feeds []FeedView
	err := s.exec.Do(r.Context(), func() error {
		for _, u := range s.archive.Feeds() {
			feeds = append(feeds, NewFeedView(u, s.archive.UnreadFor(u), s.archive.TotalCountFor(u), s.archive.LastFetchFor(u)))
		}
		return nil
	})
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, "Archive unavailable", err)
		return
	}
	if feeds == nil {
		feeds = []FeedView{}
	}
	writeJSON(w, http.StatusOK, feeds)
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	feed := q.Get("feed")
	if feed == "" {
		writeError(w, http.StatusBadRequest, "feed is required")
		return
	}
	groups, err := matcher.Search(q.Get("q"), q.Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(feed, q.Get("q"), q.Get("status"))
	if cached, ok := s.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	// a write landing between the read and the store bumps the generation
	gen := s.cache.Generation()
	var (
		articles []ArticleView
		found    bool
	)
	err = s.exec.Do(r.Context(), func() error {
		fr, ok := s.archive.Lookup(feed)
		if !ok {
			return nil
		}
		found = true
		articles = ListArticles(fr, groups)
		return nil
	})
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, "Archive unavailable", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown feed")
		return
	}

	s.cache.SetIfCurrent(key, articles, gen)
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	feed, guid, ok := articleParams(w, r)
	if !ok {
		return
	}

	var (
		rec   model.Record
		found bool
	)
	err := s.exec.Do(r.Context(), func() error {
		if fr, ok := s.archive.Lookup(feed); ok {
			rec, found = fr.Record(guid)
		}
		return nil
	})
	if err != nil {
		s.fail(w, http.StatusServiceUnavailable, "Archive unavailable", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, ingest.ErrUnknownArticle.Error())
		return
	}
	writeJSON(w, http.StatusOK, NewRecordView(&rec))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	feed, guid, ok := articleParams(w, r)
	if !ok {
		return
	}
	status, ok := model.ParseStatus(r.URL.Query().Get("status"))
	if !ok {
		writeError(w, http.StatusBadRequest, "status must be new, unread or read")
		return
	}
	s.write(w, r, func() error { return s.writer.SetStatus(feed, guid, status) })
}

func (s *Server) handleKeep(w http.ResponseWriter, r *http.Request) {
	feed, guid, ok := articleParams(w, r)
	if !ok {
		return
	}
	keep, err := strconv.ParseBool(r.URL.Query().Get("keep"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "keep must be a boolean")
		return
	}
	s.write(w, r, func() error { return s.writer.SetKeep(feed, guid, keep) })
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	feed, guid, ok := articleParams(w, r)
	if !ok {
		return
	}
	s.write(w, r, func() error { return s.writer.SetDeleted(feed, guid) })
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	feed, guid, ok := articleParams(w, r)
	if !ok {
		return
	}
	s.write(w, r, func() error { return s.writer.Purge(feed, guid) })
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	if err := s.exec.Do(r.Context(), s.archive.Commit); err != nil {
		s.fail(w, http.StatusInternalServerError, "Commit failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	err := s.exec.Do(r.Context(), s.archive.Rollback)
	s.cache.Invalidate()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "Rollback failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// write runs a mutation on the archive goroutine and drops cached queries.
func (s *Server) write(w http.ResponseWriter, r *http.Request, fn func() error) {
	err := s.exec.Do(r.Context(), fn)
	switch {
	case errors.Is(err, ingest.ErrUnknownArticle):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		s.fail(w, http.StatusInternalServerError, "Update failed", err)
		return
	}
	s.cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func articleParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	feed, guid := r.URL.Query().Get("feed"), r.URL.Query().Get("guid")
	if feed == "" || guid == "" {
		writeError(w, http.StatusBadRequest, "feed and guid are required")
		return "", "", false
	}
	return feed, guid, true
}

func (s *Server) fail(w http.ResponseWriter, code int, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, code, msg)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
