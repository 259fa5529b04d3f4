package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/agent"
	"github.com/KaramelBytes/chartloom-cli/internal/chart"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"go.uber.org/zap"
)

// Processor turns a stored dataset and a user prompt into a client response.
type Processor interface {
	Process(ctx context.Context, ds *chart.Dataset, prompt string) agent.Response
}

// Config holds the HTTP shell settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
	TokenSecret    string
	TokenTTL       time.Duration
}

// Server exposes upload and prompt endpoints over HTTP.
type Server struct {
	cfg       Config
	processor Processor
	tokens    *TokenStore
	logger    *zap.Logger
	handler   http.Handler
}

// New wires routes and middleware. A nil logger discards logs.
func New(cfg Config, processor Processor, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 5 << 20
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	tokens, err := NewTokenStore(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, processor: processor, tokens: tokens, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /upload-csv/", s.handleUpload)
	mux.HandleFunc("POST /send-prompt", s.handlePrompt)
	s.handler = s.withLogging(s.withRecover(cors(cfg.AllowedOrigins, mux)))
	return s, nil
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-sweep.C:
			if n := s.tokens.Sweep(); n > 0 {
				s.logger.Debug("expired datasets removed", zap.Int("count", n))
			}
		case <-ctx.Done():
			s.logger.Info("http server shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		}
	}
}

type detail struct {
	Detail string `json:"detail"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type promptRequest struct {
	Prompt *string `json:"prompt"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, detail{Detail: msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "ChartLoom API is running"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeDetail(w, http.StatusBadRequest, s.sizeMessage())
			return
		}
		writeDetail(w, http.StatusUnprocessableEntity, "A multipart form field named 'file' is required.")
		return
	}
	defer file.Close()

	mediaType, _, _ := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if mediaType != "text/csv" {
		writeDetail(w, http.StatusBadRequest, "Invalid file type. Please upload a CSV file.")
		return
	}
	if header.Size > s.cfg.MaxUploadBytes {
		writeDetail(w, http.StatusBadRequest, s.sizeMessage())
		return
	}
	ds, err := dataset.ReadCSV(io.LimitReader(file, s.cfg.MaxUploadBytes), dataset.Options{})
	if err != nil {
		s.logger.Error("csv upload rejected", zap.Error(err), zap.String("filename", header.Filename))
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("An error occurred during CSV processing: %v", err))
		return
	}
	token, err := s.tokens.Issue(dataset.Sanitize(ds))
	if err != nil {
		s.logger.Error("token issue failed", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "could not issue access token")
		return
	}
	s.logger.Info("dataset uploaded",
		zap.String("filename", header.Filename),
		zap.Int("rows", ds.Len()),
		zap.Strings("columns", ds.Columns))
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) sizeMessage() string {
	return fmt.Sprintf("File size exceeds the limit of %d MB.", s.cfg.MaxUploadBytes>>20)
}

func (s *Server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return
	}
	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.Prompt == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Request body must be JSON with a 'prompt' field.")
		return
	}
	ds, err := s.tokens.Lookup(token)
	if err != nil || ds.Len() == 0 {
		writeDetail(w, http.StatusNotFound, "Token not found or expired")
		return
	}
	resp := s.processor.Process(r.Context(), ds, *req.Prompt)
	if resp.Failed() {
		s.logger.Warn("prompt processing failed", zap.String("kind", *resp.Error), zap.String("summary", resp.Summary))
	}
	writeJSON(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
