package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

// backend is a fake directory API. It counts every request by
// "<METHOD> <route>" and records the Authorization headers it saw.
type backend struct {
	t      *testing.T
	srv    *httptest.Server
	router *mux.Router

	mu      sync.Mutex
	calls   map[string]int
	auth    []string
	centers map[string]Center
	failing map[string]int // route -> status to return
	held    *heldRead
}

// heldRead parks one GET /centers/{id} after the record was read and
// before the response is written.
type heldRead struct {
	reached chan struct{}
	release chan struct{}
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		t:     t,
		calls: make(map[string]int),
		centers: map[string]Center{
			"42": {ID: "42", Name: "Sunrise", City: "Moscow"},
			"43": {ID: "43", Name: "Harbor", City: "Moscow"},
			"44": {ID: "44", Name: "Ridge", City: "Kazan"},
		},
		failing: make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(b.record)
	r.HandleFunc("/centers", b.listCenters).Methods(http.MethodGet).Name("centers")
	r.HandleFunc("/centers", b.createCenter).Methods(http.MethodPost).Name("centers")
	r.HandleFunc("/centers/{id}", b.getCenter).Methods(http.MethodGet).Name("centers/{id}")
	r.HandleFunc("/centers/{id}", b.updateCenter).Methods(http.MethodPut).Name("centers/{id}")
	r.HandleFunc("/centers/{id}", b.deleteCenter).Methods(http.MethodDelete).Name("centers/{id}")
	r.HandleFunc("/bookings", b.listBookings).Methods(http.MethodGet).Name("bookings")
	r.HandleFunc("/me", b.me).Methods(http.MethodGet).Name("me")
	r.HandleFunc("/articles", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"`))
	}).Methods(http.MethodGet).Name("articles")
	b.router = r

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) URL() string { return b.srv.URL }

func (b *backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			name = route.GetName()
		}
		key := r.Method + " " + name

		b.mu.Lock()
		b.calls[key]++
		if h := r.Header.Get("Authorization"); h != "" {
			b.auth = append(b.auth, h)
		}
		status := b.failing[key]
		b.mu.Unlock()

		if status != 0 {
			http.Error(w, "boom", status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests hit "<METHOD> <route>".
func (b *backend) Calls(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

// Total returns the number of requests received.
func (b *backend) Total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *backend) AuthHeaders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auth...)
}

func (b *backend) Fail(key string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[key] = status
}

func (b *backend) Rename(id, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.centers[id]
	c.Name = name
	b.centers[id] = c
}

// HoldNextRecordRead makes the next GET /centers/{id} snapshot its record
// and then wait. The returned channel closes once that request is parked;
// calling release lets it respond with the snapshot.
func (b *backend) HoldNextRecordRead() (reached <-chan struct{}, release func()) {
	h := &heldRead{reached: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.held = h
	b.mu.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(h.release) }) }
	b.t.Cleanup(release)
	return h.reached, release
}

func (b *backend) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(b.t, json.NewEncoder(w).Encode(v))
}

func (b *backend) listCenters(w http.ResponseWriter, r *http.Request) {
	city := r.URL.Query().Get("city")

	b.mu.Lock()
	out := make([]Center, 0, len(b.centers))
	for _, c := range b.centers {
		if city == "" || strings.EqualFold(c.City, city) {
			out = append(out, c)
		}
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	b.writeJSON(w, http.StatusOK, out)
}

func (b *backend) getCenter(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	c, ok := b.centers[mux.Vars(r)["id"]]
	h := b.held
	b.held = nil
	b.mu.Unlock()
	if h != nil {
		close(h.reached)
		<-h.release
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	b.writeJSON(w, http.StatusOK, c)
}

func (b *backend) createCenter(w http.ResponseWriter, r *http.Request) {
	var c Center
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	c.ID = "100"
	b.centers[c.ID] = c
	b.mu.Unlock()
	b.writeJSON(w, http.StatusCreated, c)
}

func (b *backend) updateCenter(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	c, ok := b.centers[id]
	if name, isString := patch["name"].(string); ok && isString {
		c.Name = name
		b.centers[id] = c
	}
	b.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	b.writeJSON(w, http.StatusOK, c)
}

func (b *backend) deleteCenter(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	delete(b.centers, mux.Vars(r)["id"])
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *backend) listBookings(w http.ResponseWriter, r *http.Request) {
	b.writeJSON(w, http.StatusOK, []Booking{{
		ID:       "b1",
		CenterID: "42",
		UserID:   "u1",
		Date:     time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC),
		Status:   BookingConfirmed,
	}})
}

func (b *backend) me(w http.ResponseWriter, r *http.Request) {
	b.writeJSON(w, http.StatusOK, User{ID: "u1", Email: "ana@example.org", Name: "Ana"})
}
