package cluster

import (
	"errors"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/storage/driver"

	"github.com/richrines1/qiskit-serverless/pkg/config"
	"github.com/richrines1/qiskit-serverless/pkg/telemetry/logging"
)

// releaser installs and uninstalls cluster Helm releases. The indirection
// keeps the manager testable without a live cluster.
type releaser interface {
	Install(name string) error
	Uninstall(name string) error
}

// helmReleaser drives the Helm action API against the configured namespace.
type helmReleaser struct {
	cfg    *config.ClustersConfig
	logger *logging.Logger
}

func newHelmReleaser(cfg *config.ClustersConfig, logger *logging.Logger) *helmReleaser {
	return &helmReleaser{cfg: cfg, logger: logger.Component("cluster.helm")}
}

func (h *helmReleaser) actionConfig() (*action.Configuration, error) {
	settings := cli.New()
	settings.SetNamespace(h.cfg.Namespace)

	actionConfig := new(action.Configuration)
	err := actionConfig.Init(settings.RESTClientGetter(), h.cfg.Namespace,
		os.Getenv("HELM_DRIVER"), func(format string, v ...interface{}) {
			h.logger.Debug(fmt.Sprintf(format, v...))
		})
	if err != nil {
		return nil, fmt.Errorf("initializing helm: %w", err)
	}
	return actionConfig, nil
}

// Install deploys the cluster chart as a release named after the cluster,
// with only the Ray cluster resources enabled.
func (h *helmReleaser) Install(name string) error {
	actionConfig, err := h.actionConfig()
	if err != nil {
		return err
	}

	install := action.NewInstall(actionConfig)
	install.ReleaseName = name
	install.Namespace = h.cfg.Namespace
	install.CreateNamespace = true
	if h.cfg.InstallTimeout > 0 {
		install.Wait = true
		install.Timeout = h.cfg.InstallTimeout
	}

	chart, err := loader.Load(h.cfg.Chart)
	if err != nil {
		return fmt.Errorf("loading chart %s: %w", h.cfg.Chart, err)
	}

	values := map[string]interface{}{
		"clusterOnly": true,
	}

	start := time.Now()
	release, err := install.Run(chart, values)
	if err != nil {
		return fmt.Errorf("installing release %s: %w", name, err)
	}

	h.logger.Info("cluster release installed",
		"release", release.Name,
		"status", string(release.Info.Status),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Uninstall removes the cluster's release. A missing release maps to
// ErrClusterNotFound.
func (h *helmReleaser) Uninstall(name string) error {
	actionConfig, err := h.actionConfig()
	if err != nil {
		return err
	}

	uninstall := action.NewUninstall(actionConfig)
	if _, err := uninstall.Run(name); err != nil {
		if errors.Is(err, driver.ErrReleaseNotFound) {
			return ErrClusterNotFound
		}
		return fmt.Errorf("uninstalling release %s: %w", name, err)
	}

	h.logger.Info("cluster release uninstalled", "release", name)
	return nil
}
