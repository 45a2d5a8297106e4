package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/docuchain/notary/x/docstore"
	"github.com/docuchain/notary/x/gas"
	"github.com/docuchain/notary/x/hasher"
	"github.com/docuchain/notary/x/notary"
)

// Handler exposes the notarization REST surface.
type Handler struct {
	hasher    *hasher.Processor
	store     *docstore.Store
	tracker   *notary.Tracker
	verifier  *notary.Verifier
	estimator *gas.Estimator
	contract  *notary.RegistryBinding
	from      common.Address
	log       zerolog.Logger
}

// NewHandler wires the REST handlers. verifier, estimator and contract
// may be nil when no chain is configured; the affected endpoints then
// answer 503.
func NewHandler(
	hasherSvc *hasher.Processor,
	store *docstore.Store,
	tracker *notary.Tracker,
	verifier *notary.Verifier,
	estimator *gas.Estimator,
	contract *notary.RegistryBinding,
	from common.Address,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		hasher:    hasherSvc,
		store:     store,
		tracker:   tracker,
		verifier:  verifier,
		estimator: estimator,
		contract:  contract,
		from:      from,
		log:       log.With().Str("component", "api-handler").Logger(),
	}
}

// RegisterMux registers all routes on the router.
func (h *Handler) RegisterMux(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/docs", h.handleListDocs).Methods(http.MethodGet)
	r.HandleFunc("/notarize", h.handleNotarize).Methods(http.MethodPost)
	r.HandleFunc("/estimate", h.handleEstimate).Methods(http.MethodPost)
	r.HandleFunc("/transactions", h.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id}", h.handleGetTransaction).Methods(http.MethodGet)
	r.HandleFunc("/verify/{hash}", h.handleVerify).Methods(http.MethodGet)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeOK := true
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		storeOK = h.store.Ping(ctx) == nil
	}

	status := "healthy"
	code := http.StatusOK
	if !storeOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	WriteJSON(w, code, map[string]any{
		"status":          status,
		"chain_connected": h.estimator != nil,
		"store_ok":        storeOK,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// handleUpload accepts multipart files plus a user_id form value, hashes
// each file and persists the completed ones.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid multipart request: %v", err))
		return
	}
	userID := r.FormValue("user_id")

	var headers []*multipart.FileHeader
	for _, fhs := range r.MultipartForm.File {
		headers = append(headers, fhs...)
	}
	if len(headers) == 0 {
		WriteError(w, http.StatusBadRequest, "no files in request")
		return
	}

	inputs := make([]hasher.Input, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("cannot read file %s: %v", fh.Filename, err))
			return
		}
		opened = append(opened, f)
		inputs = append(inputs, hasher.Input{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}

	files, err := h.hasher.Process(r.Context(), inputs)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.store != nil {
		for _, file := range files {
			if file.Status != hasher.FileStatusCompleted {
				continue
			}
			doc := &docstore.Document{
				ID:          file.ID,
				UserID:      userID,
				Name:        file.Name,
				Size:        file.Size,
				ContentType: file.ContentType,
				Hash:        file.Hash,
				Status:      string(file.Status),
				IPFSCID:     file.IPFSCID,
				CreatedAt:   time.Now().UTC(),
			}
			if err := h.store.SaveDocument(r.Context(), doc); err != nil {
				h.log.Error().Err(err).Str("file", file.Name).Msg("failed to persist document")
			}
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (h *Handler) handleListDocs(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		WriteError(w, http.StatusServiceUnavailable, "document store not configured")
		return
	}
	docs, err := h.store.ListDocuments(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []docstore.Document{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

type notarizeRequest struct {
	Hash     string `json:"hash"`
	FileName string `json:"file_name"`
}

func (h *Handler) handleNotarize(w http.ResponseWriter, r *http.Request) {
	var req notarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	tx, err := h.tracker.Submit(r.Context(), req.Hash, req.FileName)
	if err != nil {
		switch {
		case errors.Is(err, notary.ErrWalletNotConnected):
			WriteError(w, http.StatusServiceUnavailable, err.Error())
		case errors.Is(err, notary.ErrAlreadyNotarized), errors.Is(err, notary.ErrSubmissionInFlight):
			WriteError(w, http.StatusConflict, err.Error())
		default:
			WriteError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, tx)
}

type estimateRequest struct {
	Hash     string `json:"hash"`
	FileName string `json:"file_name"`
}

func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if h.estimator == nil || h.contract == nil {
		WriteError(w, http.StatusServiceUnavailable, "chain not configured")
		return
	}

	var req estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	docHash, err := notary.ParseDocHash(req.Hash)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	metadata, _ := json.Marshal(map[string]any{
		"file_name": req.FileName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	calldata, err := h.contract.BuildNotarizeCalldata(docHash, string(metadata))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	est := h.estimator.Estimate(r.Context(), h.from, h.contract.Address(), calldata)
	WriteJSON(w, http.StatusOK, est)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": h.tracker.List(),
		"stats":        h.tracker.Stats(),
	})
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tx, err := h.tracker.Get(id)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	// Fast path: a hash confirmed by this service this session.
	if h.tracker.IsNotarized(hash) && h.verifier == nil {
		WriteJSON(w, http.StatusOK, map[string]any{
			"hash":      hash,
			"notarized": true,
			"source":    "local",
		})
		return
	}

	if h.verifier == nil {
		WriteError(w, http.StatusServiceUnavailable, "chain not configured")
		return
	}

	result, err := h.verifier.Verify(r.Context(), hash)
	if err != nil {
		if errors.Is(err, notary.ErrInvalidHash) {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Chain unreachable; answer from the local notarized set if it
		// can still prove existence.
		if h.tracker.IsNotarized(hash) {
			WriteJSON(w, http.StatusOK, map[string]any{
				"hash":      hash,
				"notarized": true,
				"source":    "local",
			})
			return
		}
		WriteError(w, http.StatusBadGateway, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"hash":         result.Hash,
		"notarized":    result.Notarized,
		"notarized_at": result.NotarizedAt,
		"submitter":    result.Submitter,
		"source":       "chain",
	})
}
