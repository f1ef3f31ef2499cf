package store

import "time"

// Device is a paired device and everything the catalog keeps about it.
type Device struct {
	IEEEAddress  string         `json:"ieee_address"`
	ShortAddress uint16         `json:"short_address"`
	Manufacturer string         `json:"manufacturer,omitempty"`
	ZigbeeModel  string         `json:"zigbee_model,omitempty"`
	Model        string         `json:"model,omitempty"` // catalog model, empty when unsupported
	FriendlyName string         `json:"friendly_name,omitempty"`
	Endpoints    []Endpoint     `json:"endpoints,omitempty"`
	Interviewed  bool           `json:"interviewed"`
	Configured   bool           `json:"configured"`
	ConfigureErr string         `json:"configure_error,omitempty"`
	JoinedAt     time.Time      `json:"joined_at"`
	LastSeen     time.Time      `json:"last_seen"`
	LQI          uint8          `json:"lqi,omitempty"`
	State        map[string]any `json:"state,omitempty"`
}

// Endpoint is a device endpoint with its attribute cache, keyed by cluster
// name then attribute name.
type Endpoint struct {
	ID          uint8                     `json:"id"`
	ProfileID   uint16                    `json:"profile_id"`
	DeviceID    uint16                    `json:"device_id"`
	InClusters  []uint16                  `json:"in_clusters"`
	OutClusters []uint16                  `json:"out_clusters"`
	Attributes  map[string]map[string]any `json:"attributes,omitempty"`
}

// FindEndpoint returns a pointer to the endpoint with the given ID.
func (d *Device) FindEndpoint(id uint8) *Endpoint {
	for i := range d.Endpoints {
		if d.Endpoints[i].ID == id {
			return &d.Endpoints[i]
		}
	}
	return nil
}

// SetAttributes merges values into the cache of one cluster.
func (e *Endpoint) SetAttributes(cluster string, values map[string]any) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]map[string]any)
	}
	if e.Attributes[cluster] == nil {
		e.Attributes[cluster] = make(map[string]any)
	}
	for k, v := range values {
		e.Attributes[cluster][k] = v
	}
}

func (e *Endpoint) HasInCluster(id uint16) bool {
	for _, c := range e.InClusters {
		if c == id {
			return true
		}
	}
	return false
}
