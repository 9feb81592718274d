package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/juju/errors"

	"github.com/okian/todoapi/pkg/logger"
)

// maxBodyBytes bounds request bodies accepted by the todo routes.
const maxBodyBytes = 1 << 20

// TodoDependencies defines the item operations the todo routes call.
type TodoDependencies interface {
	ListAll(ctx context.Context) ([]TodoItem, error)
	GetByID(ctx context.Context, id int64) (TodoItem, error)
	Create(ctx context.Context, item *TodoItem) (TodoItem, error)
	Update(ctx context.Context, id int64, item *TodoItem) error
	Delete(ctx context.Context, id int64) error
}

// TodoHandler handles the /api/todo routes.
type TodoHandler struct {
	deps   TodoDependencies
	logger logger.Logger
	router *mux.Router
}

// NewTodoHandler creates a new todo handler.
func NewTodoHandler(deps TodoDependencies, log logger.Logger) *TodoHandler {
	return &TodoHandler{deps: deps, logger: log}
}

// HandleList handles GET /api/todo requests.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.deps.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleGet handles GET /api/todo/{id} requests.
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.deps.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleCreate handles POST /api/todo requests.
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	item, err := decodeItem(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.deps.Create(r.Context(), item)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Location", h.location(created))
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate handles PUT /api/todo/{id} requests.
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := decodeItem(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.deps.Update(r.Context(), id, item); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /api/todo/{id} requests.
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.deps.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// location builds the URL of the GetTodo route for item.
func (h *TodoHandler) location(item TodoItem) string {
	if h.router != nil {
		if route := h.router.Get(routeGetTodo); route != nil {
			if u, err := route.URL("id", item.KeyString()); err == nil {
				return u.String()
			}
		}
	}
	return "/api/todo/" + item.KeyString()
}

func (h *TodoHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "todo request failed",
			logger.String("request_id", RequestID(r.Context())),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}

func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.BadRequestf("invalid todo id %q", raw)
	}
	return id, nil
}

// decodeItem reads a TodoItem body. An empty body or a JSON null yields a
// nil item; the service decides how to treat it.
func decodeItem(w http.ResponseWriter, r *http.Request) (*TodoItem, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.BadRequestf("reading body: %v", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	var item *TodoItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, errors.BadRequestf("malformed todo item: %v", err)
	}
	return item, nil
}
