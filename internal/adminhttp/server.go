// Package adminhttp provides the read-only, rate-limited admin and
// introspection HTTP surface: a realm/world listing, a
// registry-contents dump, and a live trace websocket stream. It is
// an enrichment surface only — the runtime functions standalone
// without it, the way an admin API commonly sits beside a core
// message bus rather than inside it.
package adminhttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/vmrealm/agentrt/internal/api"
	"github.com/vmrealm/agentrt/internal/classifier"
	"github.com/vmrealm/agentrt/internal/variant"
)

// configDumper is satisfied by *realm.Environment (and so by every
// Realm/World/God, which embed one); it is declared locally rather
// than imported from internal/realm so this package only needs the
// one method it actually calls.
type configDumper interface {
	LocalConfig() *variant.Dictionary
}

// Server is the admin HTTP surface bound to one Api instance.
type Server struct {
	api      *api.Api
	hub      *TraceHub
	limiter  *RateLimiter
	router   *mux.Router
	upgrader websocket.Upgrader
}

// Config controls the rate limit applied to every admin endpoint.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// New builds a Server wired to the given Api. hub receives trace lines
// via a separate logrus.Hook attachment to the host's rtlog.Logger;
// Server only reads from it here.
func New(a *api.Api, hub *TraceHub, cfg Config) *Server {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}

	s := &Server{
		api:     a,
		hub:     hub,
		limiter: NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.Use(s.limiter.Handler)
	r.HandleFunc("/realms", s.handleListRealms).Methods(http.MethodGet)
	r.HandleFunc("/realms/{name}/registry", s.handleRealmRegistry).Methods(http.MethodGet)
	r.HandleFunc("/realms/{name}/trace", s.handleRealmTrace)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler so hosts can mount a Server
// directly on their own *http.Server.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type realmSummary struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"` // "god", "world", or "template"
	Paused bool   `json:"paused"`
}

func (s *Server) handleListRealms(w http.ResponseWriter, r *http.Request) {
	var out []realmSummary

	if god := s.api.God(); god != nil {
		out = append(out, realmSummary{Name: god.Name, Kind: "god", Paused: god.Paused})
		for _, world := range god.Worlds() {
			out = append(out, realmSummary{Name: world.Name, Kind: "world", Paused: world.Paused})
		}
	}
	for _, name := range s.api.Registry().RealmNames() {
		out = append(out, realmSummary{Name: name, Kind: "template"})
	}

	writeJSON(w, http.StatusOK, out)
}

// handleRealmRegistry dumps a realm's local config dictionary as JSON.
// An optional ?path= query parameter, read with gjson, pulls a single
// scalar out of the serialized snapshot without a full unmarshal — for
// a dashboard polling one field on a timer this is materially cheaper
// than round-tripping through variant.Dictionary.Query's jsonpath
// engine on every poll.
func (s *Server) handleRealmRegistry(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	realmHandle := s.findRealm(name)
	if realmHandle == nil {
		http.Error(w, "realm not found", http.StatusNotFound)
		return
	}

	data, err := realmHandle.LocalConfig().ToJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if path := r.URL.Query().Get("path"); path != "" {
		result := gjson.GetBytes(data, path)
		if !result.Exists() {
			http.Error(w, "path not found in registry snapshot", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(result.Raw))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) findRealm(name string) configDumper {
	if god := s.api.God(); god != nil {
		if god.Name == name {
			return god.Environment
		}
		if world := god.GetWorld(name); world != nil {
			return world.Environment
		}
	}
	if handle := s.api.Registry().GetRealm(name); handle != nil {
		if d, ok := handle.(configDumper); ok {
			return d
		}
	}
	return nil
}

// handleRealmTrace upgrades to a websocket and streams trace lines
// matching an optional comma-separated ?labels= filter until the
// client disconnects.
func (s *Server) handleRealmTrace(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "trace hub not configured", http.StatusServiceUnavailable)
		return
	}

	var filter *classifier.Set
	if raw := r.URL.Query().Get("labels"); raw != "" {
		filter = classifier.New(strings.Split(raw, ",")...)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	lines, unsubscribe := s.hub.Subscribe(filter)
	defer unsubscribe()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
