package cluster

// Cluster describes a Ray cluster reachable through its head node service.
type Cluster struct {
	// Name is the cluster (Helm release) name.
	Name string `json:"name"`

	// Host is the head node service name, formed by appending the
	// configured suffix to the cluster name.
	Host string `json:"host"`

	// IP is the head service's cluster IP. Empty in listings.
	IP string `json:"ip,omitempty"`

	// Port is the head service's first target port. Empty in listings.
	Port string `json:"port,omitempty"`
}
