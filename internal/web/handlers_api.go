package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"zigbee-catalog/internal/coordinator"
	"zigbee-catalog/internal/devices"
	"zigbee-catalog/internal/exposes"
	"zigbee-catalog/internal/store"
)

// DefinitionView is the JSON form of a catalog definition.
type DefinitionView struct {
	Model         string           `json:"model"`
	Vendor        string           `json:"vendor"`
	Description   string           `json:"description"`
	ZigbeeModels  []string         `json:"zigbee_models"`
	MultiEndpoint bool             `json:"multi_endpoint"`
	FromZigbee    []string         `json:"from_zigbee"`
	Configure     []string         `json:"configure"`
	Exposes       []exposes.Expose `json:"exposes"`
}

// NewDefinitionView summarizes d for API and CLI output.
func NewDefinitionView(d *devices.Definition) DefinitionView {
	v := DefinitionView{
		Model:         d.Model,
		Vendor:        d.Vendor,
		Description:   d.Description,
		ZigbeeModels:  d.ZigbeeModels,
		MultiEndpoint: d.MultiEndpoint(),
		FromZigbee:    make([]string, 0, len(d.FromZigbee)),
		Configure:     make([]string, 0, len(d.Configure)),
		Exposes:       d.Exposes,
	}
	for _, c := range d.FromZigbee {
		v.FromZigbee = append(v.FromZigbee, c.Name)
	}
	for _, step := range d.Configure {
		v.Configure = append(v.Configure, step.Name)
	}
	return v
}

func (s *Server) handleAPIListDefinitions(w http.ResponseWriter, r *http.Request) {
	vendor := r.URL.Query().Get("vendor")
	views := []DefinitionView{}
	for _, d := range s.coord.Catalog().All() {
		if vendor != "" && d.Vendor != vendor {
			continue
		}
		views = append(views, NewDefinitionView(d))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAPIGetDefinition(w http.ResponseWriter, r *http.Request) {
	d, err := s.coord.Catalog().Resolve(r.PathValue("model"))
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "definition not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, NewDefinitionView(d))
}

func (s *Server) handleAPIListDevices(w http.ResponseWriter, r *http.Request) {
	var (
		devs []*store.Device
		err  error
	)
	if model := r.URL.Query().Get("model"); model != "" {
		devs, err = s.coord.Store().ListDevicesByModel(model)
	} else {
		devs, err = s.coord.Store().ListDevices()
	}
	if err != nil {
		s.logger.Error("list devices", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, devs)
}

func (s *Server) handleAPIGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.coord.Store().GetDevice(r.PathValue("ieee"))
	if err != nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, dev)
}

type registerDeviceRequest struct {
	IEEE         string           `json:"ieee"`
	Manufacturer string           `json:"manufacturer"`
	ZigbeeModel  string           `json:"zigbee_model"`
	Endpoints    []store.Endpoint `json:"endpoints"`
}

func (s *Server) handleAPIRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if _, err := coordinator.ParseIEEE(req.IEEE); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	dev, err := s.coord.Interview(req.IEEE, req.Manufacturer, req.ZigbeeModel, req.Endpoints)
	if err != nil {
		s.logger.Error("register device", "err", err, "ieee", req.IEEE)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) handleAPIDeleteDevice(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	if err := s.coord.RemoveDevice(ieee); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
			return
		}
		s.logger.Error("delete device", "err", err, "ieee", ieee)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAPIConfigureDevice(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	err := s.coord.Configure(r.Context(), ieee)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, store.ErrNotFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
	case errors.Is(err, coordinator.ErrUnsupported):
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, coordinator.ErrNoStack):
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		s.writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleAPIReport(w http.ResponseWriter, r *http.Request) {
	var evt coordinator.AttributeReportEvent
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	payload, err := s.coord.HandleAttributeReport(evt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found"})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"payload": payload})
}

func (s *Server) handleAPIListClusters(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.coord.Registry().All())
}

func (s *Server) handleAPIVersion(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode failed", "err", err)
	}
}
