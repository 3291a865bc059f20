package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/rehabdir/auth"
	"github.com/jonwraymond/rehabdir/directory"
)

type fakeAPI struct {
	srv *httptest.Server

	mu    sync.Mutex
	calls map[string]int
	auth  []string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{calls: make(map[string]int)}

	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.calls[req.Method+" "+req.URL.Path]++
			if h := req.Header.Get("Authorization"); h != "" {
				f.auth = append(f.auth, h)
			}
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/centers", func(w http.ResponseWriter, req *http.Request) {
		centers := []directory.Center{{ID: "42", Name: "Sunrise", City: "Moscow"}}
		if req.URL.Query().Get("city") == "Kazan" {
			centers = []directory.Center{}
		}
		_ = json.NewEncoder(w).Encode(centers)
	}).Methods(http.MethodGet)
	r.HandleFunc("/centers", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		body["id"] = "100"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(body)
	}).Methods(http.MethodPost)
	r.HandleFunc("/bookings", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode([]directory.Booking{{ID: "b1", CenterID: "42", Status: directory.BookingPending}})
	}).Methods(http.MethodGet)
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) Auth() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

// writeConfig writes a configuration using the given store driver in a
// temporary directory.
func writeConfig(t *testing.T, api *fakeAPI, driver string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rehabdir.yaml")
	content := "api:\n" +
		"  base_url: " + api.srv.URL + "\n" +
		"  retry_delay: 1ms\n" +
		"store:\n" +
		"  driver: " + driver + "\n" +
		"  path: " + filepath.Join(dir, "store.db") + "\n" +
		"log:\n" +
		"  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommandWithIO(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCenters_ListAndCacheAcrossRuns(t *testing.T) {
	for _, driver := range []string{"bolt", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			api := newFakeAPI(t)
			cfg := writeConfig(t, api, driver)

			out, err := run(t, "--config", cfg, "centers", "list", "-f", "city=Moscow")
			require.NoError(t, err)

			var centers []directory.Center
			require.NoError(t, json.Unmarshal([]byte(out), &centers))
			require.Len(t, centers, 1)
			assert.Equal(t, "Sunrise", centers[0].Name)

			_, err = run(t, "--config", cfg, "centers", "list", "-f", "city=Moscow")
			require.NoError(t, err)
			assert.Equal(t, 1, api.Calls("GET /centers"), "second run is served from the persisted cache")

			_, err = run(t, "--config", cfg, "--no-cache", "centers", "list", "-f", "city=Moscow")
			require.NoError(t, err)
			assert.Equal(t, 2, api.Calls("GET /centers"))
		})
	}
}

func TestCenters_Create(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api, "memory")

	out, err := run(t, "--config", cfg, "centers", "create", "--set", "name=Meadow", "--set", "rating=4.5")
	require.NoError(t, err)

	var center directory.Center
	require.NoError(t, json.Unmarshal([]byte(out), &center))
	assert.Equal(t, "100", center.ID)
	assert.Equal(t, "Meadow", center.Name)
	assert.Equal(t, 4.5, center.Rating)
}

func TestBookings_RequireSignIn(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api, "bolt")

	_, err := run(t, "--config", cfg, "bookings", "list")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
	assert.Zero(t, api.Calls("GET /bookings"))

	out, err := run(t, "--config", cfg, "signin", "opaque-token")
	require.NoError(t, err)
	assert.Equal(t, "signed in\n", out)

	out, err = run(t, "--config", cfg, "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "pending"`)
	assert.Equal(t, []string{"Bearer opaque-token"}, api.Auth())

	out, err = run(t, "--config", cfg, "signout")
	require.NoError(t, err)
	assert.Equal(t, "signed out\n", out)

	_, err = run(t, "--config", cfg, "bookings", "list")
	require.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestSignIn_SecretReference(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api, "sqlite")
	t.Setenv("REHABDIR_TEST_TOKEN", "from-env")

	_, err := run(t, "--config", cfg, "signin", "secretref:env:REHABDIR_TEST_TOKEN")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "cache", "status")
	require.NoError(t, err)
	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, true, status["authenticated"])
	assert.Equal(t, "********", status["token"])
}

func TestHealth(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api, "memory")

	out, err := run(t, "--config", cfg, "health")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "healthy"`)

	down := writeConfig(t, api, "memory")
	api.srv.Close()
	out, err = run(t, "--config", down, "health")
	assert.ErrorIs(t, err, errUnhealthy)
	assert.Contains(t, out, `"name": "api"`)
}

func TestCache_Clear(t *testing.T) {
	api := newFakeAPI(t)
	cfg := writeConfig(t, api, "bolt")

	_, err := run(t, "--config", cfg, "centers", "list")
	require.NoError(t, err)
	_, err = run(t, "--config", cfg, "centers", "list", "-f", "city=Kazan")
	require.NoError(t, err)

	out, err := run(t, "--config", cfg, "cache", "clear", "Kazan")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 cached entries\n", out)

	_, err = run(t, "--config", cfg, "centers", "list")
	require.NoError(t, err)
	assert.Equal(t, 2, api.Calls("GET /centers"), "unmatched entry stays cached")
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"city=Moscow", "rating=4.5", "open=true", "tags=[\"a\"]", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"city":   "Moscow",
		"rating": 4.5,
		"open":   true,
		"tags":   []any{"a"},
		"note":   "a=b",
	}, got)

	_, err = parsePairs([]string{"novalue"})
	assert.Error(t, err)
}

func TestPayload_SetOverridesData(t *testing.T) {
	got, err := payload(`{"name":"Old","city":"Kazan"}`, []string{"name=New"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "New", "city": "Kazan"}, got)

	_, err = payload(`not json`, nil)
	assert.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "abcd****wxyz", maskToken("abcdefghwxyz"))
}
