package devstack

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterMap hands out one rate limiter per inbox address so aggressive
// pollers see 429s the way the hosted provider throttles them.
type limiterMap struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLimiterMap(interval time.Duration, burst int) *limiterMap {
	return &limiterMap{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(interval),
		burst:    burst,
	}
}

func (m *limiterMap) allow(address string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, ok := m.limiters[address]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.limiters[address] = limiter
	}
	return limiter.Allow()
}

// addressParam assembles the inbox address from the username and domain
// query parameters.
func addressParam(r *http.Request) (string, bool) {
	username := r.URL.Query().Get("username")
	domain := r.URL.Query().Get("domain")
	if username == "" || domain == "" {
		return "", false
	}
	return username + "@" + domain, true
}

func (srv *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	srv.writeJSON(w, "domains", map[string]any{"result": srv.state.listDomains()})
}

func (srv *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(r)
	if !ok {
		http.Error(w, "Missing username or domain parameter", http.StatusBadRequest)
		return
	}

	if !srv.limiters.allow(address) {
		srv.log.Debug("Throttled message listing", "address", address)
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	listing := make([]map[string]string, 0)
	for _, msg := range srv.state.messages(address) {
		listing = append(listing, map[string]string{
			"id":      msg.id,
			"from":    msg.from,
			"subject": msg.subject,
		})
	}
	srv.writeJSON(w, "messages", map[string]any{"result": listing})
}

func (srv *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	address, ok := addressParam(r)
	if !ok {
		http.Error(w, "Missing username or domain parameter", http.StatusBadRequest)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Missing id parameter", http.StatusBadRequest)
		return
	}

	body, ok := srv.state.messageBody(address, id)
	if !ok {
		http.Error(w, "Unknown message", http.StatusNotFound)
		return
	}

	// The hosted provider serves message bodies as plain text, not JSON.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

func (srv *Server) writeJSON(w http.ResponseWriter, route string, response any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		srv.log.Error("Failed to encode response", "err", err, "route", route)
	}
}
