package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-grocery/internal/common"
	"github.com/noah-isme/backend-grocery/internal/db"
)

type handlerQueries interface {
	InsertReceipt(ctx context.Context, userID uuid.UUID, rawText string) (db.Receipt, error)
	GetReceipt(ctx context.Context, id, userID uuid.UUID) (db.Receipt, error)
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Handler exposes receipt submission and status endpoints.
type Handler struct {
	queries handlerQueries
	queue   enqueuer
}

// NewHandler constructs a Handler.
func NewHandler(queries handlerQueries, queue enqueuer) *Handler {
	return &Handler{queries: queries, queue: queue}
}

type submitRequest struct {
	RawText string `json:"rawText"`
}

// View is the public receipt payload.
type View struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	StoreName string          `json:"storeName,omitempty"`
	Address   string          `json:"address,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt string          `json:"createdAt"`
}

// Submit handles POST /api/v1/receipts. The receipt is stored immediately
// and parsed asynchronously; the response carries the id to poll.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	req.RawText = strings.TrimSpace(req.RawText)
	if req.RawText == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "rawText is required", nil)
		return
	}
	rec, err := h.queries.InsertReceipt(r.Context(), userID, req.RawText)
	if err != nil {
		common.WriteError(w, err, "failed to store receipt")
		return
	}
	task, err := NewParseTask(rec.ID)
	if err != nil {
		common.WriteError(w, err, "failed to queue receipt")
		return
	}
	if _, err := h.queue.EnqueueContext(r.Context(), task); err != nil {
		common.WriteError(w, err, "failed to queue receipt")
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": toView(rec)})
}

// Status handles GET /api/v1/receipts/{id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid receipt id", nil)
		return
	}
	rec, err := h.queries.GetReceipt(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "receipt not found", nil)
			return
		}
		common.WriteError(w, err, "failed to get receipt")
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toView(rec)})
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identity", nil)
		return uuid.Nil, false
	}
	return id, true
}

func toView(rec db.Receipt) View {
	v := View{
		ID:        rec.ID.String(),
		Status:    rec.Status,
		StoreName: rec.StoreName,
		Address:   rec.Address,
		Error:     rec.Error,
		CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if len(rec.Payload) > 0 {
		v.Result = json.RawMessage(rec.Payload)
	}
	return v
}
