// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the conversion pipeline over HTTP.
//
//	POST /convert  multipart field "file" -> PNLD archive
//	GET  /         readiness message
//	GET  /health   liveness probe
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pnld-converter/internal/httputil"
	"github.com/pdiddy/pnld-converter/internal/pipeline"
	"github.com/pdiddy/pnld-converter/pkg/types"
)

const (
	// ReadyMessage is returned by GET /.
	ReadyMessage = "PNLD Converter API is ready! Upload a PDF to /convert"

	// ArchiveContentType is the media type of a PNLD package.
	ArchiveContentType = "application/zip"

	// PagesHeader carries the page count of the converted PDF when known.
	PagesHeader = "X-PNLD-Pages"

	// RequestIDHeader carries the id that request logs are tagged with.
	RequestIDHeader = "X-Request-Id"

	uploadField = "file"
)

// Converter runs one conversion. *pipeline.Converter implements it.
type Converter interface {
	Run(ctx context.Context, up types.Upload) (*pipeline.Result, error)
}

// Server is the HTTP front end.
type Server struct {
	conv       Converter
	cfg        types.ServerConfig
	outputName string
	logger     *slog.Logger
	handler    http.Handler
}

// New builds a Server around conv. A nil logger discards output.
func New(conv Converter, cfg types.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		conv:       conv,
		cfg:        cfg.Server,
		outputName: cfg.Package.OutputName,
		logger:     logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /health", s.handleHealth)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", PagesHeader, RequestIDHeader},
	})
	s.handler = s.withRequestLog(withHeaders(c.Handler(mux)))
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe listens on the configured address and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. In-flight requests get
// server.shutdown_timeout to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:        s.handler,
		ReadTimeout:    s.cfg.ReadTimeout,
		WriteTimeout:   s.cfg.WriteTimeout,
		IdleTimeout:    s.cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": ReadyMessage})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r.Context(), s.logger)
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}

	part, err := uploadPart(r)
	if err != nil {
		s.writeFailure(w, log, err)
		return
	}
	defer part.Close()

	ctx := pipeline.WithLogger(r.Context(), log)
	res, err := s.conv.Run(ctx, types.Upload{Filename: part.FileName(), Content: part})
	if err != nil {
		s.writeFailure(w, log, err)
		return
	}
	defer func() {
		if err := res.Release(); err != nil {
			log.Error("releasing workspace", "error", err)
		}
	}()

	f, err := res.Open()
	if err != nil {
		s.writeFailure(w, log, &pipeline.StageError{Stage: pipeline.StageArchive, Kind: pipeline.KindFilesystem, Err: err})
		return
	}
	defer f.Close()

	httputil.Attachment(w, s.outputName, ArchiveContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.ArchiveBytes, 10))
	if res.Pages > 0 {
		w.Header().Set(PagesHeader, strconv.Itoa(res.Pages))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		log.Warn("streaming archive", "error", err)
	}
}

// errMissingFile means the form had no part named "file".
var errMissingFile = errors.New(`missing form field "file"`)

// uploadPart returns the "file" part of a multipart request without
// buffering it, so the pipeline streams the upload straight to disk.
func uploadPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, errMissingFile
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == uploadField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

// writeFailure maps err to a status code and JSON body.
func (s *Server) writeFailure(w http.ResponseWriter, log *slog.Logger, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		log.Warn("upload too large", "limit", maxErr.Limit)
		httputil.WriteError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Upload exceeds the %d byte limit.", maxErr.Limit), string(pipeline.StagePersist))
		return
	}

	var se *pipeline.StageError
	if !errors.As(err, &se) {
		// Request-level problems: not multipart, no file field.
		log.Info("bad request", "error", err)
		httputil.WriteError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	stage := string(se.Stage)
	if se.Stage == pipeline.StageValidate {
		stage = ""
	}
	httputil.WriteError(w, statusFor(se.Kind), se.Detail(), stage)
}

func statusFor(k pipeline.Kind) int {
	switch k {
	case pipeline.KindInvalidInput:
		return http.StatusBadRequest
	case pipeline.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// withHeaders adds security headers.
func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

type loggerKey struct{}

func requestLogger(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return fallback
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// withRequestLog tags each request with an id and logs its outcome.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		log := s.logger.With("requestId", id)
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), loggerKey{}, log)))

		log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
