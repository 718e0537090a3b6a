package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/mattermost/mattermost/server/public/plugin"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/card"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/cardconfig"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
	"github.com/mattermost/mattermost-plugin-trafikinfo/server/notify"
)

// maxStateSize bounds the body of a pushed entity state.
const maxStateSize = 8 << 20

// ServeHTTP handles HTTP requests for the plugin.
// The root URL is currently <siteUrl>/plugins/com.mattermost.plugin-trafikinfo/api/v1/.
func (p *Plugin) ServeHTTP(c *plugin.Context, w http.ResponseWriter, r *http.Request) {
	if p.router == nil {
		http.Error(w, "Plugin not active", http.StatusServiceUnavailable)
		return
	}
	p.router.ServeHTTP(w, r)
}

func (p *Plugin) initRouter() *mux.Router {
	router := mux.NewRouter()

	// Middleware to require that the user is logged in
	router.Use(p.MattermostAuthorizationRequired)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()

	apiRouter.HandleFunc("/states", p.handlePushState).Methods(http.MethodPost)
	apiRouter.HandleFunc("/schema", p.handleSchema).Methods(http.MethodGet)
	apiRouter.HandleFunc("/stub", p.handleStub).Methods(http.MethodGet)
	apiRouter.Handle("/events", p.notifier.Handler()).Methods(http.MethodGet)

	apiRouter.HandleFunc("/cards/{id}", p.handleGetCard).Methods(http.MethodGet)
	apiRouter.HandleFunc("/cards/{id}/maps", p.handleCardMaps).Methods(http.MethodGet)
	apiRouter.HandleFunc("/cards/{id}/restore", p.handleRestore).Methods(http.MethodPost)
	// Alert keys embed raw upstream timestamps, which may contain slashes.
	apiRouter.HandleFunc("/cards/{id}/alerts/{key:.+}/toggle", p.handleToggle).Methods(http.MethodPost)
	apiRouter.HandleFunc("/cards/{id}/alerts/{key:.+}/pointer", p.handlePointer).Methods(http.MethodPost)
	apiRouter.HandleFunc("/cards/{id}/alerts/{key:.+}/dismiss", p.handleDismiss).Methods(http.MethodPost)
	apiRouter.HandleFunc("/mapviews/{id}", p.handleMapView).Methods(http.MethodGet)

	return router
}

func (p *Plugin) MattermostAuthorizationRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("Mattermost-User-ID")
		if userID == "" {
			http.Error(w, "Not authorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (p *Plugin) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.API.LogWarn("Failed to write response", "error", err.Error())
	}
}

// cardFromRequest resolves the card addressed by the request, writing a 404 if there is none.
func (p *Plugin) cardFromRequest(w http.ResponseWriter, r *http.Request) *card.Card {
	c := p.registry.Get(mux.Vars(r)["id"])
	if c == nil {
		http.Error(w, "Card not found", http.StatusNotFound)
	}
	return c
}

// writeCardError maps card errors onto HTTP status codes.
func writeCardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, card.ErrUnknownAlert):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

type pushStateResponse struct {
	EntityID string   `json:"entity_id"`
	Changed  []string `json:"changed"`
}

func (p *Plugin) handlePushState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxStateSize))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	state, err := entity.Decode(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if state.EntityID == "" {
		http.Error(w, "Missing entity_id", http.StatusBadRequest)
		return
	}

	changed := p.updateState(state)
	if changed == nil {
		changed = []string{}
	}
	p.writeJSON(w, http.StatusOK, pushStateResponse{EntityID: state.EntityID, Changed: changed})
}

func (p *Plugin) handleSchema(w http.ResponseWriter, _ *http.Request) {
	p.writeJSON(w, http.StatusOK, cardconfig.Schema())
}

// handleStub returns the suggested configuration of a new card, bound to one of the entities
// that pushed a state.
func (p *Plugin) handleStub(w http.ResponseWriter, r *http.Request) {
	preset := cardconfig.Preset(strings.TrimSpace(r.URL.Query().Get("preset")))
	switch preset {
	case "":
		preset = cardconfig.PresetAccident
	case cardconfig.PresetAccident, cardconfig.PresetImportant:
	default:
		http.Error(w, "Unknown preset", http.StatusBadRequest)
		return
	}
	p.writeJSON(w, http.StatusOK, cardconfig.StubConfig(preset, p.states.Entities()))
}

func (p *Plugin) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c := p.cardFromRequest(w, r)
	if c == nil {
		return
	}
	p.writeJSON(w, http.StatusOK, c.Render())
}

func (p *Plugin) handleCardMaps(w http.ResponseWriter, r *http.Request) {
	c := p.cardFromRequest(w, r)
	if c == nil {
		return
	}
	p.writeJSON(w, http.StatusOK, c.Maps(r.Context()))
}

type toggleResponse struct {
	Key      string `json:"key"`
	Expanded bool   `json:"expanded"`
}

func (p *Plugin) handleToggle(w http.ResponseWriter, r *http.Request) {
	c := p.cardFromRequest(w, r)
	if c == nil {
		return
	}

	key := mux.Vars(r)["key"]
	expanded, err := c.Toggle(key)
	if err != nil {
		writeCardError(w, err)
		return
	}

	p.publish(c, notify.ReasonInteraction)
	p.writeJSON(w, http.StatusOK, toggleResponse{Key: key, Expanded: expanded})
}

func (p *Plugin) handlePointer(w http.ResponseWriter, r *http.Request) {
	c := p.cardFromRequest(w, r)
	if c == nil {
		return
	}

	var ev card.PointerEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		http.Error(w, "Invalid pointer event", http.StatusBadRequest)
		return
	}

	if err := c.Pointer(mux.Vars(r)["key"], ev); err != nil {
		writeCardError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDismiss hides the incident right away. The outcome of the dismiss command is published
// through the card's change notifications.
func (p *Plugin) handleDismiss(w http.ResponseWriter, r *http.Request) {
	c := p.cardFromRequest(w, r)
	if c == nil {
		return
	}

	if err := c.Dismiss(mux.Vars(r)["key"]); err != nil {
		writeCardError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (p *Plugin) handleRestore(w http.ResponseWriter, r *http.Request) {
	c := p.cardFromRequest(w, r)
	if c == nil {
		return
	}

	if err := c.RestoreAll(); err != nil {
		writeCardError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (p *Plugin) handleMapView(w http.ResponseWriter, r *http.Request) {
	v := p.getMapView(mux.Vars(r)["id"])
	if v == nil {
		http.Error(w, "Map view not found", http.StatusNotFound)
		return
	}
	p.writeJSON(w, http.StatusOK, v.Sync(r.Context()))
}
