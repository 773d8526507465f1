package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/richrines1/qiskit-serverless/pkg/cluster"
	"github.com/richrines1/qiskit-serverless/pkg/proxy/types"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

// ClusterService is the subset of cluster.Manager the handler needs.
type ClusterService interface {
	List(ctx context.Context) ([]cluster.Cluster, error)
	Get(ctx context.Context, name string) (*cluster.Cluster, error)
	Create(ctx context.Context, name string) (*cluster.Cluster, error)
	Delete(ctx context.Context, name string) error
}

// Clusters serves the compute-cluster admin API.
type Clusters struct {
	manager ClusterService
	logger  *logging.Logger
}

// NewClusters creates a cluster admin handler.
func NewClusters(manager ClusterService, logger *logging.Logger) *Clusters {
	return &Clusters{
		manager: manager,
		logger:  logger.Component("clusters"),
	}
}

// Routes mounts the cluster endpoints on a chi router.
func (c *Clusters) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.list)
	r.Post("/", c.create)
	r.Get("/{name}", c.get)
	r.Delete("/{name}", c.delete)
	return r
}

func (c *Clusters) list(w http.ResponseWriter, r *http.Request) {
	clusters, err := c.manager.List(r.Context())
	if err != nil {
		c.logger.ErrorContext(r.Context(), "cluster list failed", "error", err)
		types.WriteError(w, types.NewServerError("Failed to list clusters."))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (c *Clusters) get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	cl, err := c.manager.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, cluster.ErrClusterNotFound) {
			types.WriteError(w, types.NewNotFoundError("Cluster not found."))
			return
		}
		c.logger.ErrorContext(r.Context(), "cluster get failed", "name", name, "error", err)
		types.WriteError(w, types.NewServerError("Failed to get cluster."))
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

type createClusterRequest struct {
	Name string `json:"name"`
}

func (c *Clusters) create(w http.ResponseWriter, r *http.Request) {
	var req createClusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, types.NewBadRequestError("Invalid request body."))
		return
	}

	cl, err := c.manager.Create(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, cluster.ErrInvalidName) {
			types.WriteError(w, types.NewBadRequestError("Cluster name must be a valid DNS label."))
			return
		}
		c.logger.ErrorContext(r.Context(), "cluster create failed", "name", req.Name, "error", err)
		types.WriteError(w, types.NewServerError("Failed to create cluster."))
		return
	}
	writeJSON(w, http.StatusCreated, cl)
}

func (c *Clusters) delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := c.manager.Delete(r.Context(), name); err != nil {
		if errors.Is(err, cluster.ErrClusterNotFound) {
			types.WriteError(w, types.NewNotFoundError("Cluster not found."))
			return
		}
		c.logger.ErrorContext(r.Context(), "cluster delete failed", "name", name, "error", err)
		types.WriteError(w, types.NewServerError("Failed to delete cluster."))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
