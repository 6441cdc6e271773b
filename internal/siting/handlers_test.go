package siting_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sustainasite/sustainasite-backend/internal/middleware"
	"github.com/sustainasite/sustainasite-backend/internal/siting"
	"github.com/sustainasite/sustainasite-backend/internal/siting/provider"
	"golang.org/x/crypto/bcrypt"
)

func TestResolveBoundingBox(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{}, nil), "")

	resp := postJSON(t, srv.URL+"/sites/bbox", siting.Request{Address: "Chicago, IL", RadiusKM: 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		BBox   provider.BoundingBox `json:"bbox"`
		Center provider.Point       `json:"center"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Center != chicago || !body.BBox.Contains(chicago) {
		t.Errorf("unexpected response %+v", body)
	}
}

func TestResolveBoundingBox_Errors(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{}, nil), "")

	cases := []struct {
		name   string
		body   any
		status int
	}{
		{"empty address", siting.Request{Address: "  ", RadiusKM: 10}, http.StatusBadRequest},
		{"zero radius", siting.Request{Address: "Chicago, IL"}, http.StatusBadRequest},
		{"not documented", siting.Request{Address: "###invalid###", RadiusKM: 10}, http.StatusNotFound},
		{"bad json", "not an object", http.StatusBadRequest},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/sites/bbox", c.body)
			if resp.StatusCode != c.status {
				t.Errorf("expected %d, got %d", c.status, resp.StatusCode)
			}
		})
	}
}

func TestGetOverlays(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{areas: coverAll("industrial")}, nil), "")

	resp := postJSON(t, srv.URL+"/sites/overlays", siting.Request{Address: "Chicago, IL", RadiusKM: 10})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Overlays map[string]json.RawMessage `json:"overlays"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, layer := range []string{"bbox", "wind", "solar", "land_use"} {
		if _, ok := body.Overlays[layer]; !ok {
			t.Errorf("missing %s overlay", layer)
		}
	}
	if _, ok := body.Overlays["ranked"]; ok {
		t.Error("overlays endpoint should not rank")
	}
}

func TestRankSites(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{}, nil), "")

	resp := postJSON(t, srv.URL+"/sites/rank", siting.Request{Address: "Chicago, IL", RadiusKM: 10, SiteType: "solar"})
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, raw)
	}
	if !strings.Contains(resp.Header.Get("Server-Timing"), "rank;dur=") {
		t.Errorf("expected Server-Timing with rank stage, got %q", resp.Header.Get("Server-Timing"))
	}

	var body struct {
		Sites   []provider.RankedSite `json:"sites"`
		Markers []provider.Marker     `json:"markers"`
		States  []struct {
			State string `json:"state"`
		} `json:"states"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sites) == 0 {
		t.Fatal("expected ranked sites")
	}
	if n := len(body.States); n == 0 || body.States[n-1].State != "RANKED" {
		t.Errorf("expected states ending in RANKED, got %+v", body.States)
	}
	for i := 1; i < len(body.Sites); i++ {
		if body.Sites[i-1].Score < body.Sites[i].Score {
			t.Fatalf("sites not sorted at %d", i)
		}
	}
	for _, m := range body.Markers {
		if m.Kind != provider.MarkerSolar {
			t.Errorf("solar request returned %s marker", m.Kind)
		}
	}
}

func TestRankSites_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		polygons stubPolygons
		status   int
	}{
		{"nothing developable", stubPolygons{areas: coverAll("forest")}, http.StatusUnprocessableEntity},
		{"overpass down", stubPolygons{err: io.ErrUnexpectedEOF}, http.StatusBadGateway},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := newServer(t, newPipeline(t, c.polygons, nil), "")
			resp := postJSON(t, srv.URL+"/sites/rank", siting.Request{Address: "Chicago, IL", RadiusKM: 10})
			if resp.StatusCode != c.status {
				t.Errorf("expected %d, got %d", c.status, resp.StatusCode)
			}
		})
	}
}

func TestRankSites_EmptyFields(t *testing.T) {
	for _, src := range []*stubFields{
		{inner: newStubFields().inner, noWind: true},
		{inner: newStubFields().inner, noSolar: true},
	} {
		srv := newServer(t, newPipelineWithFields(t, src, stubPolygons{areas: coverAll("farmland")}, nil), "")
		resp := postJSON(t, srv.URL+"/sites/rank", siting.Request{Address: "Chicago, IL", RadiusKM: 10})
		if resp.StatusCode != http.StatusBadGateway {
			t.Errorf("noWind=%v noSolar=%v: expected 502, got %d", src.noWind, src.noSolar, resp.StatusCode)
		}
	}
}

func TestRankSites_CanceledRequest(t *testing.T) {
	p := newPipelineWithFields(t, newStubFields(), stubPolygons{areas: coverAll("farmland")}, nil)
	r := chi.NewRouter()
	r.Mount("/sites", siting.NewRouter(siting.NewHandler(p), ""))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	body := strings.NewReader(`{"address":"Chicago, IL","radius_km":10}`)
	req := httptest.NewRequest(http.MethodPost, "/sites/rank", body).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504 for a canceled request, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRuns_RecordingDisabled(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{}, nil), "")

	resp, err := http.Get(srv.URL + "/sites/runs")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
}

func getWithKey(t *testing.T, url, key string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if key != "" {
		req.Header.Set(middleware.APIKeyHeader, key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRuns_WithRecorder(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("runs-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	rec := newMemRecorder()
	srv := newServer(t, newPipeline(t, stubPolygons{}, rec), string(hash))

	resp := postJSON(t, srv.URL+"/sites/rank", siting.Request{Address: "Chicago, IL", RadiusKM: 10})
	var ranked siting.Result
	if err := json.NewDecoder(resp.Body).Decode(&ranked); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ranked.RunID == "" {
		t.Fatal("expected a run id")
	}

	if resp := getWithKey(t, srv.URL+"/sites/runs", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", resp.StatusCode)
	}

	resp = getWithKey(t, srv.URL+"/sites/runs", "runs-key")
	var runs []siting.SiteRun
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID.String() != ranked.RunID {
		t.Errorf("unexpected runs %+v", runs)
	}

	resp = getWithKey(t, srv.URL+"/sites/runs/"+ranked.RunID, "runs-key")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if resp := getWithKey(t, srv.URL+"/sites/runs/"+uuid.NewString(), "runs-key"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown run, got %d", resp.StatusCode)
	}
	if resp := getWithKey(t, srv.URL+"/sites/runs/not-a-uuid", "runs-key"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", resp.StatusCode)
	}
}

func TestRankStream(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{}, nil), "")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sites/rank/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(siting.Request{Address: "Chicago, IL", RadiusKM: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var states []string
	for {
		var ev siting.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Type == "state" {
			states = append(states, ev.State)
			continue
		}
		if ev.Type != "result" || ev.Result == nil || len(ev.Result.Sites) == 0 {
			t.Fatalf("expected a result event, got %+v", ev)
		}
		break
	}

	want := "COLLECTING_SAMPLES,FILTERING_DEVELOPABLE,LABELING,TRAINING,SCORING,RANKED"
	if got := strings.Join(states, ","); got != want {
		t.Errorf("states = %s, want %s", got, want)
	}
}

func TestRankStream_Error(t *testing.T) {
	srv := newServer(t, newPipeline(t, stubPolygons{}, nil), "")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sites/rank/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(siting.Request{Address: "###invalid###", RadiusKM: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var ev siting.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Type != "error" || ev.Status != http.StatusNotFound {
		t.Errorf("expected a 404 error event, got %+v", ev)
	}
}
