package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/finclaw/internal/gateway"
	"github.com/user/finclaw/internal/store"
	"github.com/user/finclaw/internal/types"
	"github.com/user/finclaw/pkg/httputil"
)

// turnTimeout bounds how long a chat request waits for its turn to finish.
const turnTimeout = 90 * time.Second

// Handler serves the chat and thread endpoints.
type Handler struct {
	gw    *gateway.Gateway
	store types.ConversationStore
}

// NewHandler creates a Handler.
func NewHandler(gw *gateway.Gateway, convStore types.ConversationStore) *Handler {
	return &Handler{gw: gw, store: convStore}
}

type chatRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

// Chat submits one user turn and responds with the persisted assistant
// message once the turn completes.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	owner, err := OwnerFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		httputil.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	replyCh := make(chan *types.Message, 1)
	errCh := make(chan error, 1)
	_, err = h.gw.Submit(owner, types.ThreadID(req.ThreadID), req.Message, "api",
		gateway.WithOnComplete(func(m *types.Message) { replyCh <- m }),
		gateway.WithOnError(func(err error) { errCh <- err }),
	)
	if err != nil {
		httputil.RespondError(w, http.StatusTooManyRequests, "too many pending messages")
		return
	}

	select {
	case reply := <-replyCh:
		httputil.RespondJSON(w, http.StatusOK, reply)
	case <-errCh:
		httputil.RespondError(w, http.StatusInternalServerError, "failed to process message")
	case <-time.After(turnTimeout):
		httputil.RespondError(w, http.StatusGatewayTimeout, "timed out waiting for reply")
	case <-r.Context().Done():
		// The turn keeps running; the reply is persisted either way.
		httputil.RespondError(w, http.StatusServiceUnavailable, "request cancelled")
	}
}

func (h *Handler) ListThreads(w http.ResponseWriter, r *http.Request) {
	owner, err := OwnerFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	threads, err := h.store.ListThreads(r.Context(), owner)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "failed to list threads")
		return
	}
	if threads == nil {
		threads = []*types.Thread{}
	}
	httputil.RespondJSON(w, http.StatusOK, threads)
}

type createThreadRequest struct {
	Context string `json:"context,omitempty"`
}

func (h *Handler) CreateThread(w http.ResponseWriter, r *http.Request) {
	owner, err := OwnerFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createThreadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	thread := &types.Thread{
		OwnerID: owner,
		Context: types.ContextFilter(req.Context),
	}
	if err := h.store.CreateThread(r.Context(), thread); err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "failed to create thread")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, thread)
}

func (h *Handler) GetThreadMessages(w http.ResponseWriter, r *http.Request) {
	owner, err := OwnerFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := types.ThreadID(chi.URLParam(r, "threadID"))

	if _, err := h.store.GetThread(r.Context(), owner, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "thread not found")
			return
		}
		httputil.RespondError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}

	msgs, err := h.store.ListMessages(r.Context(), owner, id)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []*types.Message{}
	}
	httputil.RespondJSON(w, http.StatusOK, msgs)
}

type updateThreadRequest struct {
	Title   *string `json:"title,omitempty"`
	Context *string `json:"context,omitempty"`
}

func (h *Handler) UpdateThread(w http.ResponseWriter, r *http.Request) {
	owner, err := OwnerFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := types.ThreadID(chi.URLParam(r, "threadID"))

	var req updateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title != nil {
		if err := h.store.SetThreadTitle(r.Context(), owner, id, *req.Title); err != nil {
			respondStoreError(w, err)
			return
		}
	}
	if req.Context != nil {
		if err := h.store.SetThreadContext(r.Context(), owner, id, types.ContextFilter(*req.Context)); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	thread, err := h.store.GetThread(r.Context(), owner, id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, thread)
}

func (h *Handler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	owner, err := OwnerFromContext(r.Context())
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := types.ThreadID(chi.URLParam(r, "threadID"))

	if err := h.store.DeleteThread(r.Context(), owner, id); err != nil {
		respondStoreError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusNoContent, nil)
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httputil.RespondError(w, http.StatusNotFound, "thread not found")
		return
	}
	httputil.RespondError(w, http.StatusInternalServerError, "storage error")
}
