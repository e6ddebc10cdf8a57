package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/api/middleware"
	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/ingest"
	"github.com/ddmitrov/fincore/internal/money"
)

// maxUploadBytes caps voice and image payloads.
const maxUploadBytes = 20 << 20

// IngestHandler exposes the four ingestion modalities.
type IngestHandler struct {
	ingestor *ingest.Ingestor
	log      zerolog.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(ingestor *ingest.Ingestor, log zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		ingestor: ingestor,
		log:      log,
	}
}

// Voice handles POST /api/ingest/voice. The body is the raw audio file;
// the language query parameter is an optional hint.
func (h *IngestHandler) Voice(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	audio, err := readUpload(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	tx, err := h.ingestor.IngestVoice(r.Context(), userID, audio, r.URL.Query().Get("language"))
	if err != nil {
		h.writeIngestError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Receipt handles POST /api/ingest/receipt. The body is the raw image
// or PDF.
func (h *IngestHandler) Receipt(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	image, err := readUpload(w, r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	tx, err := h.ingestor.IngestReceipt(r.Context(), userID, image, r.URL.Query().Get("language"))
	if err != nil {
		h.writeIngestError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Text handles POST /api/ingest/text with a JSON body.
func (h *IngestHandler) Text(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req struct {
		Text     string `json:"text"`
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Text is required")
		return
	}

	tx, err := h.ingestor.IngestText(r.Context(), userID, req.Text, req.Language)
	if err != nil {
		h.writeIngestError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// TextWithImage handles POST /api/ingest/text-image as a multipart form
// with a "text" field and an "image" file.
func (h *IngestHandler) TextWithImage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	text := r.FormValue("text")

	var image []byte
	var mimeType string
	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		image, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Failed to read image")
			return
		}
		mimeType = header.Header.Get("Content-Type")
	}

	if text == "" && len(image) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Text or image is required")
		return
	}

	tx, err := h.ingestor.IngestTextWithImage(r.Context(), userID, text, image, mimeType, r.FormValue("language"))
	if err != nil {
		h.writeIngestError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// writeIngestError maps pipeline failures to HTTP statuses: malformed
// input is 400, input that parsed but yielded nothing is 422.
func (h *IngestHandler) writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedAudioFormat):
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported audio format")
	case errors.Is(err, domain.ErrUnsupportedImageFormat):
		middleware.WriteError(w, http.StatusBadRequest, "Unsupported image format")
	case errors.Is(err, money.ErrInvalidCurrency), errors.Is(err, money.ErrInvalidAmount):
		middleware.WriteError(w, http.StatusBadRequest, "Invalid amount or currency in input")
	case errors.Is(err, domain.ErrNoTransactionFound):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "No transaction found in input")
	case errors.Is(err, domain.ErrTranscriptionFailed):
		middleware.WriteError(w, http.StatusUnprocessableEntity, "Could not transcribe audio")
	case errors.Is(err, domain.ErrNoAccount):
		middleware.WriteError(w, http.StatusConflict, "Create an account before ingesting transactions")
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("Ingestion failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Ingestion failed")
	}
}

func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	return io.ReadAll(r.Body)
}
