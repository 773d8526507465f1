package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/richrines1/qiskit-serverless/pkg/audit"
	"github.com/richrines1/qiskit-serverless/pkg/limits"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
	"github.com/richrines1/qiskit-serverless/pkg/routing"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

const (
	defaultAuditPageSize = 100
	maxAuditPageSize     = 1000
)

// Admin serves routing statistics, per-user usage, and audit queries.
type Admin struct {
	router  *routing.Router
	limits  *limits.Manager
	auditDB audit.Storage
	logger  *logging.Logger
}

// NewAdmin creates the admin handler. auditDB may be nil when auditing is
// disabled; the audit endpoints then return 404.
func NewAdmin(router *routing.Router, limits *limits.Manager, auditDB audit.Storage, logger *logging.Logger) *Admin {
	return &Admin{
		router:  router,
		limits:  limits,
		auditDB: auditDB,
		logger:  logger.Component("admin"),
	}
}

// Routes mounts the admin endpoints on a chi router.
func (a *Admin) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/routing/stats", a.routingStats)
	r.Get("/usage", a.listUsage)
	r.Get("/usage/{user}", a.userUsage)
	r.Get("/audit/records", a.auditRecords)
	return r
}

func (a *Admin) routingStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"strategy": a.router.Strategy().Name(),
		"stats":    a.router.Stats().Snapshot(),
	})
}

func (a *Admin) listUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := a.limits.ListUsage(r.Context())
	if err != nil {
		a.logger.ErrorContext(r.Context(), "usage listing failed", "error", err)
		types.WriteError(w, types.NewServerError("Failed to list usage."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"usage": usage})
}

func (a *Admin) userUsage(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")

	usage, err := a.limits.Usage(r.Context(), user)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "usage lookup failed", "user", user, "error", err)
		types.WriteError(w, types.NewServerError("Failed to get usage."))
		return
	}
	if usage == nil {
		types.WriteError(w, types.NewNotFoundError("No usage recorded for user."))
		return
	}
	writeJSON(w, http.StatusOK, usage)
}

func (a *Admin) auditRecords(w http.ResponseWriter, r *http.Request) {
	if a.auditDB == nil {
		types.WriteError(w, types.NewNotFoundError("Audit log is not enabled."))
		return
	}

	query, err := parseAuditQuery(r)
	if err != nil {
		types.WriteError(w, types.NewBadRequestError(err.Error()))
		return
	}

	records, err := a.auditDB.Query(r.Context(), query)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "audit query failed", "error", err)
		types.WriteError(w, types.NewServerError("Failed to query audit log."))
		return
	}
	total, err := a.auditDB.Count(r.Context(), query)
	if err != nil {
		a.logger.ErrorContext(r.Context(), "audit count failed", "error", err)
		types.WriteError(w, types.NewServerError("Failed to query audit log."))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
		"limit":   query.Limit,
		"offset":  query.Offset,
	})
}

func parseAuditQuery(r *http.Request) (*audit.Query, error) {
	q := &audit.Query{
		User:     r.URL.Query().Get("user"),
		Upstream: r.URL.Query().Get("upstream"),
		Limit:    defaultAuditPageSize,
	}

	if v := r.URL.Query().Get("status"); v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			return nil, &badParamError{"status"}
		}
		q.Status = status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return nil, &badParamError{"limit"}
		}
		if limit > maxAuditPageSize {
			limit = maxAuditPageSize
		}
		q.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return nil, &badParamError{"offset"}
		}
		q.Offset = offset
	}
	if v := r.URL.Query().Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, &badParamError{"start_time"}
		}
		q.StartTime = &t
	}
	if v := r.URL.Query().Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, &badParamError{"end_time"}
		}
		q.EndTime = &t
	}

	return q, nil
}

type badParamError struct {
	param string
}

func (e *badParamError) Error() string {
	return "Invalid value for query parameter " + strconv.Quote(e.param) + "."
}
