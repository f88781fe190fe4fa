// Package httpapi serves certificate downloads over plain HTTP, for
// browsers that cannot speak gRPC.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/studiosign/internal/common"
	"github.com/dmitrijs2005/studiosign/internal/logging"
	"github.com/dmitrijs2005/studiosign/internal/server/auth"
	"github.com/dmitrijs2005/studiosign/internal/server/consent"
	"github.com/dmitrijs2005/studiosign/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/justinas/alice"
)

type ctxKey string

const principalKey ctxKey = "principal"

type Server struct {
	address   string
	consent   *consent.Service
	logger    logging.Logger
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, cs *consent.Service, secretKey string) *Server {
	return &Server{
		address:   a,
		consent:   cs,
		logger:    l.With("module", "http_server"),
		jwtSecret: []byte(secretKey),
	}
}

// Handler returns the router. Only the certificate route needs a token.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.With(s.bearerAuth).Get("/v1/subjects/{subjectID}/certificates/{kind}", s.downloadCertificate)

	return alice.New(s.logRequest).Then(r)
}

func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())
	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) downloadCertificate(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(principalKey).(auth.Principal)

	kind, err := models.ParseDocumentKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	cert, err := s.consent.DownloadCertificate(r.Context(), p, chi.URLParam(r, "subjectID"), kind)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", cert.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.Data)))
	if cert.URL != "" {
		w.Header().Set("Link", fmt.Sprintf("<%s>; rel=\"alternate\"", cert.URL))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cert.Data)
}

func (s *Server) bearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := parseBearer(r.Header.Get("Authorization"))
		if !ok {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		p, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Debug(r.Context(), "http request", "method", r.Method, "path", r.URL.Path, "status", sw.status, "duration", time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func parseBearer(h string) (string, bool) {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// httpStatus maps domain errors to response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrUnknownDocumentKind):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrNotSigned):
		return http.StatusConflict
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrInconsistentRecord), errors.Is(err, common.ErrTamperedRecord):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "certificate download failed", "error", err)
		msg = "internal error"
	}
	http.Error(w, msg, code)
}
