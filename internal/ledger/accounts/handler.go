package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-ledger/internal/platform/httpx"
)

// Handler exposes the account store over JSON.
type Handler struct {
	logger    *slog.Logger
	store     *Store
	validator *validator.Validate
	bulkLimit int
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, validator: validator.New(), bulkLimit: 30}
}

// MountRoutes attaches the account routes under /tenants/{tenantID}/accounts.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(h.bulkLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "bulk status updates are rate limited")
		}),
	)

	r.Route("/tenants/{tenantID}/accounts", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/graph", h.graph)
		r.With(limiter).Post("/activate", h.activateBulk)
		r.With(limiter).Post("/inactivate", h.inactivateBulk)
		r.Post("/system/receivable", h.systemReceivable)
		r.Post("/system/payable", h.systemPayable)
		r.Get("/slug/{slug}", h.bySlug)
		r.Get("/{id}", h.get)
		r.Get("/{id}/descendants", h.descendants)
		r.Post("/{id}/balance", h.adjustBalance)
		r.Post("/{id}/activate", h.activateOne)
		r.Post("/{id}/inactivate", h.inactivateOne)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		AccountType:  AccountType(q.Get("type")),
		CurrencyCode: q.Get("currency"),
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, errors.New("active must be a boolean")))
			return
		}
		filter.Active = &active
	}
	for _, param := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		raw := q.Get(param.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, errors.New(param.name+" must be a non-negative integer")))
			return
		}
		*param.dst = n
	}

	accs, err := h.store.List(r.Context(), tenant, filter)
	if err != nil {
		h.fail(w, "list accounts", err)
		return
	}
	if accs == nil {
		accs = []Account{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Accounts: accs})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	acc, err := h.store.Create(r.Context(), tenant, req.input())
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acc)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	acc, err := h.store.Get(r.Context(), tenant, id)
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) bySlug(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	acc, found, err := h.store.FindBySlug(r.Context(), tenant, chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, "find account by slug", err)
		return
	}
	if !found {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no account with that slug")
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) adjustBalance(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.store.AdjustBalance(r.Context(), tenant, id, *req.Delta); err != nil {
		h.fail(w, "adjust balance", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activateBulk(w http.ResponseWriter, r *http.Request) {
	h.bulkStatus(w, r, true)
}

func (h *Handler) inactivateBulk(w http.ResponseWriter, r *http.Request) {
	h.bulkStatus(w, r, false)
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request, active bool) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req bulkStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	n, err := h.store.SetActiveBulk(r.Context(), tenant, req.IDs, active)
	if err != nil {
		h.fail(w, statusOp(active)+" accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bulkStatusResponse{Affected: n})
}

func (h *Handler) activateOne(w http.ResponseWriter, r *http.Request) {
	h.statusOne(w, r, true)
}

func (h *Handler) inactivateOne(w http.ResponseWriter, r *http.Request) {
	h.statusOne(w, r, false)
}

func (h *Handler) statusOne(w http.ResponseWriter, r *http.Request, active bool) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var err error
	if active {
		err = h.store.Activate(r.Context(), tenant, id)
	} else {
		err = h.store.Inactivate(r.Context(), tenant, id)
	}
	if err != nil {
		h.fail(w, statusOp(active)+" account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) systemReceivable(w http.ResponseWriter, r *http.Request) {
	h.systemAccount(w, r, TypeReceivable)
}

func (h *Handler) systemPayable(w http.ResponseWriter, r *http.Request) {
	h.systemAccount(w, r, TypePayable)
}

func (h *Handler) systemAccount(w http.ResponseWriter, r *http.Request, accountType AccountType) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	var req systemAccountRequest
	if !h.decode(w, r, &req) {
		return
	}
	var (
		acc Account
		err error
	)
	if accountType == TypeReceivable {
		acc, err = h.store.FindOrCreateReceivable(r.Context(), tenant, req.CurrencyCode, req.Attributes)
	} else {
		acc, err = h.store.FindOrCreatePayable(r.Context(), tenant, req.CurrencyCode, req.Attributes)
	}
	if err != nil {
		h.fail(w, "find or create "+string(accountType), err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) graph(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	g, err := h.store.DependencyGraph(r.Context(), tenant)
	if err != nil {
		h.fail(w, "dependency graph", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) descendants(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	g, err := h.store.DependencyGraph(r.Context(), tenant)
	if err != nil {
		h.fail(w, "dependency graph", err)
		return
	}
	if _, found := g.Node(id); !found {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no account with that id")
		return
	}
	ids := g.Descendants(id)
	if ids == nil {
		ids = []int64{}
	}
	httpx.JSON(w, http.StatusOK, descendantsResponse{AccountID: id, Descendants: ids})
}

func (h *Handler) tenant(w http.ResponseWriter, r *http.Request) (TenantID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, errors.New("invalid tenant id")))
		return 0, false
	}
	return TenantID(id), true
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, errors.New("invalid account id")))
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrConflict):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrDuplicate, err))
	case errors.Is(err, ErrNotFound):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrNotFound, err))
	case errors.Is(err, ErrDuplicate):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrDuplicate, err))
	case errors.Is(err, ErrValidation), errors.Is(err, ErrCycle):
		httpx.RespondError(w, httpx.Wrap(httpx.ErrValidation, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
