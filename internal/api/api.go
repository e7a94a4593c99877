// Package api exposes the cipher over HTTP: one-shot translation, mapping
// validation, shared ciphertexts and a websocket that keeps a plaintext and
// a ciphertext field in sync.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/hfi/betabet/internal/audit"
	"github.com/hfi/betabet/internal/metrics"
	"github.com/hfi/betabet/internal/storage"
	"github.com/hfi/betabet/pkg/cipher"
	"github.com/hfi/betabet/pkg/shareid"
)

const (
	// RequestIDHeader carries the request ID in both directions
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes    = 1 << 20
	maxMessageBytes = 1 << 20
)

type contextKey int

const requestIDKey contextKey = iota

// API serves the translator endpoints.
type API struct {
	cipher      *cipher.Cipher
	store       storage.ShareStore
	ownsStore   bool
	ids         *shareid.Generator
	auditor     audit.Auditor
	logger      zerolog.Logger
	normalize   bool
	corsOrigins []string
	upgrader    *websocket.Upgrader
	handler     http.Handler
}

// Option defines functional option parameters for API.
type Option func(*API)

// WithCipher is a functional option to inject the cipher.
func WithCipher(c *cipher.Cipher) Option {
	return func(a *API) {
		a.cipher = c
	}
}

// WithStore is a functional option to inject a ShareStore. The caller keeps
// ownership and closes it.
func WithStore(store storage.ShareStore) Option {
	return func(a *API) {
		a.store = store
	}
}

// WithIDGenerator is a functional option to inject a share ID generator.
func WithIDGenerator(g *shareid.Generator) Option {
	return func(a *API) {
		a.ids = g
	}
}

// WithAuditor is a functional option to inject an audit logger.
func WithAuditor(auditor audit.Auditor) Option {
	return func(a *API) {
		a.auditor = auditor
	}
}

// WithLogger is a functional option to inject a Logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithNormalization enables Unicode NFC normalisation of incoming text, so
// that decomposed umlauts are translated as one character.
func WithNormalization(enabled bool) Option {
	return func(a *API) {
		a.normalize = enabled
	}
}

// WithCORSOrigins allows browser clients from origins to call the API and
// open live sessions.
func WithCORSOrigins(origins []string) Option {
	return func(a *API) {
		a.corsOrigins = origins
	}
}

// New constructs an API.
func New(options ...Option) *API {
	a := &API{
		auditor: audit.NewNopLogger(),
		logger:  zerolog.Nop(),
	}

	for _, option := range options {
		option(a)
	}

	if a.cipher == nil {
		a.cipher = cipher.New(nil)
	}
	if a.store == nil {
		a.store = storage.NewMemoryStore(24 * time.Hour)
		a.ownsStore = true
	}
	if a.ids == nil {
		a.ids = shareid.NewGenerator(shareid.DefaultPrefix)
	}

	a.upgrader = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if len(a.corsOrigins) > 0 {
		a.upgrader.CheckOrigin = a.allowedOrigin
	}

	a.initRoutes()
	return a
}

func (a *API) initRoutes() {
	v1 := mux.NewRouter().StrictSlash(true)
	v1.Use(a.instrument)
	v1.HandleFunc("/v1/encrypt", a.Encrypt).Methods(http.MethodPost)
	v1.HandleFunc("/v1/decrypt", a.Decrypt).Methods(http.MethodPost)
	v1.HandleFunc("/v1/validate", a.Validate).Methods(http.MethodPost)
	v1.HandleFunc("/v1/mapping", a.Mapping).Methods(http.MethodGet)
	v1.HandleFunc("/v1/shares", a.CreateShare).Methods(http.MethodPost)
	v1.HandleFunc("/v1/shares/{id}", a.GetShare).Methods(http.MethodGet)

	// The websocket route stays outside the compressing router
	root := mux.NewRouter()
	root.Handle("/v1/live", a.instrument(http.HandlerFunc(a.Live)))
	root.PathPrefix("/v1/").Handler(handlers.CompressHandler(v1))

	var handler http.Handler = withRequestID(root)
	if len(a.corsOrigins) > 0 {
		handler = handlers.CORS(
			handlers.AllowedOrigins(a.corsOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Content-Type", RequestIDHeader}),
			handlers.ExposedHeaders([]string{RequestIDHeader}),
		)(handler)
	}
	a.handler = handler
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Store returns the share store in use.
func (a *API) Store() storage.ShareStore {
	return a.store
}

// Close releases the share store if the API created it.
func (a *API) Close() error {
	if a.ownsStore {
		return a.store.Close()
	}
	return nil
}

func (a *API) allowedOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (a *API) prepare(text string) string {
	if a.normalize {
		return norm.NFC.String(text)
	}
	return text
}

// RequestID returns the request ID assigned to the request context.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		requestID := RequestID(r.Context())

		metrics.RecordRequestDuration(route, strconv.Itoa(rec.status), elapsed.Seconds())
		a.auditor.LogRequestProcessed(requestID, r.Method, r.URL.Path, rec.status, float64(elapsed.Microseconds())/1000)
		a.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("route", route).
			Int("status", rec.status).
			Dur("duration", elapsed).
			Msg("request processed")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *statusRecorder) Flush() {
	if flusher, ok := s.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
