package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-splinter/internal/config"
	"github.com/example/go-splinter/internal/splinter"
	splittext "github.com/example/go-splinter/internal/text"
	"github.com/example/go-splinter/internal/textproc"
)

// Codec rewrites text between its plain and encoded forms.
type Codec interface {
	Encode(ctx context.Context, text string) (string, error)
	Decode(ctx context.Context, text string) (string, error)
	// Tokens returns the reduction chain of every word in text.
	Tokens(ctx context.Context, text string) ([]WordTokens, error)
	// Detokenize rebuilds one surface word per token list. Keys are applied
	// in stream order, or sorted by position when byPosition is set.
	Detokenize(ctx context.Context, words [][]string, byPosition bool) ([]string, error)
}

// WordTokens is one word with the token texts it encodes to.
type WordTokens struct {
	Word   string   `json:"word"`
	Tokens []string `json:"tokens"`
}

// ModelInfo describes the model behind a Codec.
type ModelInfo struct {
	Language string `json:"language"`
	Lengths  []int  `json:"lengths"`
	Symbols  int    `json:"symbols"`
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes   int
	workers        int
	requestTimeout time.Duration
	logger         *slog.Logger
	info           *ModelInfo
}

func defaultOptions() options {
	return options{
		maxTextBytes:   64 * 1024,
		workers:        4,
		requestTimeout: 30 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes for POST
// /encode and /decode.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent encode/decode calls.
// Zero disables throttling.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithModelInfo enables GET /info.
func WithModelInfo(info ModelInfo) Option {
	return func(o *options) { o.info = &info }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	codec Codec
	opts  options
	sem   chan struct{} // semaphore for worker pool
	log   *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /info, POST
// /encode, /decode, /tokens and /detokenize.
func NewHandler(codec Codec, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = slog.Default()
	}

	h := &handler{
		codec: codec,
		opts:  opts,
		log:   opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/info", h.handleInfo)
	mux.HandleFunc("/encode", h.handleCodec("encode", codec.Encode))
	mux.HandleFunc("/decode", h.handleCodec("decode", codec.Decode))
	mux.HandleFunc("/tokens", h.handleTokens)
	mux.HandleFunc("/detokenize", h.handleDetokenize)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleInfo(w http.ResponseWriter, _ *http.Request) {
	if h.opts.info == nil {
		writeError(w, http.StatusNotFound, "model info not available")
		return
	}
	writeJSON(w, http.StatusOK, h.opts.info)
}

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Text string `json:"text"`
}

type tokensResponse struct {
	Words []WordTokens `json:"words"`
}

// readText validates the request and returns its text. It writes the error
// response itself and returns false when the request is rejected.
func (h *handler) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return "", false
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return "", false
	}

	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return "", false
	}

	if len(req.Text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return "", false
	}

	text, err := splittext.Normalize(req.Text)
	if errors.Is(err, splittext.ErrEmptyText) {
		writeError(w, http.StatusBadRequest, "text field is required")
		return "", false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return text, true
}

// acquire takes a worker slot, honouring cancellation while waiting.
func (h *handler) acquire(ctx context.Context) (func(), bool) {
	if h.sem == nil {
		return func() {}, true
	}
	select {
	case h.sem <- struct{}{}:
		return func() { <-h.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

func (h *handler) run(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, text string) (any, error)) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	h.serve(w, r, op, len(text), func(ctx context.Context) (any, error) { return fn(ctx, text) })
}

// serve runs fn in a worker slot under the request timeout and writes its
// result. The slot is held until fn returns.
func (h *handler) serve(w http.ResponseWriter, r *http.Request, op string, textLen int, fn func(ctx context.Context) (any, error)) {
	release, ok := h.acquire(r.Context())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
		return
	}
	defer release()

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := fn(ctx)
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			h.log.WarnContext(r.Context(), op+" timed out",
				slog.String("op", op),
				slog.Int("text_len", textLen),
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusGatewayTimeout, op+" timed out")
			return
		}
		h.log.ErrorContext(r.Context(), op+" failed",
			slog.String("op", op),
			slog.Int("text_len", textLen),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), op+" complete",
		slog.String("op", op),
		slog.Int("text_len", textLen),
		slog.Int64("duration_ms", durationMS),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleCodec(op string, fn func(context.Context, string) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.run(w, r, op, func(ctx context.Context, text string) (any, error) {
			out, err := fn(ctx, text)
			if err != nil {
				return nil, err
			}
			return textResponse{Text: out}, nil
		})
	}
}

func (h *handler) handleTokens(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "tokens", func(ctx context.Context, text string) (any, error) {
		words, err := h.codec.Tokens(ctx, text)
		if err != nil {
			return nil, err
		}
		if words == nil {
			words = []WordTokens{}
		}
		return tokensResponse{Words: words}, nil
	})
}

type detokenizeRequest struct {
	Words [][]string `json:"words"`
	// Order is "stream" (the default) or "position".
	Order string `json:"order"`
}

type detokenizeResponse struct {
	Words []string `json:"words"`
	Text  string   `json:"text"`
}

func (h *handler) handleDetokenize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req detokenizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if len(req.Words) == 0 {
		writeError(w, http.StatusBadRequest, "words field is required")
		return
	}

	var byPosition bool
	switch req.Order {
	case "", "stream":
	case "position":
		byPosition = true
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("order must be stream or position, got %q", req.Order))
		return
	}

	size := 0
	for _, tokens := range req.Words {
		for _, t := range tokens {
			size += len(t)
		}
	}
	if size > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("tokens exceed maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	h.serve(w, r, "detokenize", size, func(ctx context.Context) (any, error) {
		words, err := h.codec.Detokenize(ctx, req.Words, byPosition)
		if err != nil {
			return nil, err
		}
		return detokenizeResponse{Words: words, Text: strings.Join(words, " ")}, nil
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// EngineCodec adapts a splinter engine to Codec
// ---------------------------------------------------------------------------

// EngineCodec serves requests from a splinter engine.
type EngineCodec struct {
	engine *splinter.Engine
	enc    *textproc.Encoding
	dec    *textproc.Decoding
}

func NewEngineCodec(e *splinter.Engine) *EngineCodec {
	return &EngineCodec{engine: e, enc: textproc.NewEncoding(e), dec: textproc.NewDecoding(e)}
}

func (c *EngineCodec) Encode(ctx context.Context, text string) (string, error) {
	return c.enc.ProcessContext(ctx, text)
}

func (c *EngineCodec) Decode(ctx context.Context, text string) (string, error) {
	return c.dec.ProcessContext(ctx, text)
}

func (c *EngineCodec) Tokens(ctx context.Context, text string) ([]WordTokens, error) {
	var words []WordTokens
	for _, w := range splittext.Words(c.engine.Language().StripDiacritics(text)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := c.engine.Encode(w)
		texts := make([]string, len(tokens))
		for i, t := range tokens {
			texts[i] = t.String()
		}
		words = append(words, WordTokens{Word: w, Tokens: texts})
	}
	return words, nil
}

// Detokenize parses token texts such as "3:d" back into tokens.
func (c *EngineCodec) Detokenize(ctx context.Context, words [][]string, byPosition bool) ([]string, error) {
	out := make([]string, len(words))
	for i, texts := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tokens := splinter.ParseTokens(texts)
		if byPosition {
			out[i] = c.engine.Language().Restore(c.engine.Reconstruct(tokens))
			continue
		}
		out[i] = c.engine.DecodeSurface(tokens)
	}
	return out, nil
}

// Info describes the engine's model.
func (c *EngineCodec) Info() ModelInfo {
	m := c.engine.Model()
	return ModelInfo{
		Language: c.engine.Language().Name(),
		Lengths:  m.Table.Lengths(),
		Symbols:  m.Symbols.Len(),
	}
}

// ---------------------------------------------------------------------------
// Server wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	engine          *splinter.Engine
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

func New(cfg config.Config, engine *splinter.Engine) *Server {
	return &Server{
		cfg:             cfg,
		engine:          engine,
		logger:          slog.Default(),
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithLogger overrides the request logger.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.logger = l
	return s
}

func (s *Server) Start(ctx context.Context) error {
	if s.engine == nil {
		return splinter.ErrMissingReductionTable
	}

	codec := NewEngineCodec(s.engine)
	h := NewHandler(codec,
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout)*time.Second),
		WithLogger(s.logger),
		WithModelInfo(codec.Info()),
	)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

// CheckHealth fails unless GET /health on addr answers 200.
func CheckHealth(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
