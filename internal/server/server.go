package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"docrev/internal/filestore"
	"docrev/internal/store"
)

const (
	allowRemoteEnvKey = "DOCREV_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 120 * time.Second
	idleTimeout       = 60 * time.Second

	importConcurrencyLimit = 1

	defaultMultipartMemory int64 = 8 << 20
)

// Options tunes server limits.
type Options struct {
	MaxUploadBytes     int64
	MultipartMaxMemory int64
}

// Server wraps HTTP handlers for the docrev API.
type Server struct {
	addr   string
	store  *store.Store
	files  *filestore.Store
	logger *slog.Logger

	documents *DocumentService
	imports   *ImportService
	techdocs  *TechDocService
	auditor   Auditor

	maxUploadBytes  int64
	multipartMemory int64
	importLimiter   chan struct{}
}

// New creates a new server instance.
func New(addr string, st *store.Store, files *filestore.Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MultipartMaxMemory <= 0 {
		opts.MultipartMaxMemory = defaultMultipartMemory
	}

	auditor := NewStoreAuditor(st, logger)
	return &Server{
		addr:            addr,
		store:           st,
		files:           files,
		logger:          logger,
		documents:       NewDocumentService(st, files, auditor, opts.MaxUploadBytes, logger),
		imports:         NewImportService(st, files, opts.MaxUploadBytes, logger),
		techdocs:        NewTechDocService(st, files, auditor, opts.MaxUploadBytes, logger),
		auditor:         auditor,
		maxUploadBytes:  opts.MaxUploadBytes,
		multipartMemory: opts.MultipartMaxMemory,
		importLimiter:   make(chan struct{}, importConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.withRequestLogging(s.routes()),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
