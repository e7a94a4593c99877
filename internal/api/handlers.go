package api

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/hfi/betabet/internal/audit"
	"github.com/hfi/betabet/internal/mapfile"
	"github.com/hfi/betabet/internal/metrics"
	"github.com/hfi/betabet/pkg/cipher"
)

type textRequest struct {
	Text string `json:"text"`
}

type textResponse struct {
	Text string `json:"text"`
}

type validateRequest struct {
	Mapping map[string]string `json:"mapping"`
}

type mappingEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type mappingResponse struct {
	Entries []mappingEntry `json:"entries"`
	Size    int            `json:"size"`
}

type shareRequest struct {
	Ciphertext string `json:"ciphertext"`
}

type shareCreatedResponse struct {
	ID     string `json:"id"`
	Reused bool   `json:"reused"`
}

type shareResponse struct {
	ID         string `json:"id"`
	Ciphertext string `json:"ciphertext"`
	Plaintext  string `json:"plaintext"`
}

// Encrypt translates plaintext to ciphertext.
func (a *API) Encrypt(w http.ResponseWriter, r *http.Request) {
	a.translate(w, r, "encrypt", a.cipher.Encrypt)
}

// Decrypt translates ciphertext back to plaintext.
func (a *API) Decrypt(w http.ResponseWriter, r *http.Request) {
	a.translate(w, r, "decrypt", a.cipher.Decrypt)
}

func (a *API) translate(w http.ResponseWriter, r *http.Request, operation string, fn func(string) string) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text := a.prepare(req.Text)
	metrics.RecordOperation(operation, utf8.RuneCountInString(text))
	writeJSON(w, http.StatusOK, textResponse{Text: fn(text)})
}

// Validate checks a candidate mapping without activating it.
func (a *API) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	m, err := mapfile.FromStrings(req.Mapping)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := cipher.ValidateMapping(m)
	metrics.RecordValidation(validationLabel(result))
	writeJSON(w, http.StatusOK, result)
}

func validationLabel(result cipher.ValidationResult) string {
	switch {
	case result.Valid:
		return "valid"
	case errors.Is(result.Err(), cipher.ErrEmptyMapping):
		return "empty"
	default:
		return "duplicate_values"
	}
}

// Mapping lists the active forward mapping in table order.
func (a *API) Mapping(w http.ResponseWriter, _ *http.Request) {
	pairs := a.cipher.Mapping().Pairs()
	entries := make([]mappingEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, mappingEntry{From: string(p.From), To: string(p.To)})
	}
	writeJSON(w, http.StatusOK, mappingResponse{Entries: entries, Size: len(entries)})
}

// CreateShare stores a ciphertext and returns its share ID. Storing the same
// ciphertext again returns the existing ID.
func (a *API) CreateShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Ciphertext == "" {
		writeError(w, http.StatusBadRequest, "ciphertext is required")
		return
	}

	requestID := RequestID(r.Context())
	text := a.prepare(req.Ciphertext)

	if id, ok := a.store.LookupByText(text); ok {
		metrics.RecordShareStored(true)
		a.auditor.LogShareCreated(requestID, id, true)
		writeJSON(w, http.StatusOK, shareCreatedResponse{ID: id, Reused: true})
		return
	}

	id := a.ids.Generate(text)
	if err := a.store.Put(id, text); err != nil {
		a.auditor.LogError(audit.EventStorageError, requestID, err.Error())
		a.logger.Error().Err(err).Str("request_id", requestID).Msg("failed to store share")
		writeError(w, http.StatusInternalServerError, "failed to store share")
		return
	}

	metrics.RecordShareStored(false)
	metrics.ShareStoreSize.Set(float64(a.store.Size()))
	a.auditor.LogShareCreated(requestID, id, false)
	writeJSON(w, http.StatusCreated, shareCreatedResponse{ID: id})
}

// GetShare returns a stored ciphertext together with its decryption.
func (a *API) GetShare(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	requestID := RequestID(r.Context())

	if !a.ids.IsID(id) {
		writeError(w, http.StatusBadRequest, "invalid share id")
		return
	}

	text, ok := a.store.Get(id)
	metrics.RecordShareLookup(ok)
	if !ok {
		a.auditor.LogShareMissed(requestID, id)
		writeError(w, http.StatusNotFound, "share not found")
		return
	}

	a.auditor.LogShareResolved(requestID, id)
	writeJSON(w, http.StatusOK, shareResponse{
		ID:         id,
		Ciphertext: text,
		Plaintext:  a.cipher.Decrypt(text),
	})
}
