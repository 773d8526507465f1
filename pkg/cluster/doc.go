// Package cluster manages Ray clusters in a Kubernetes namespace.
//
// A cluster is a Helm release of the configured chart with only the Ray
// cluster resources enabled. Its head node is exposed by a service named
// <cluster><head_service_suffix>, whose cluster IP and target port are what
// clients connect to. Listing and lookups go through the Kubernetes API;
// creation and deletion go through the Helm action API.
package cluster
