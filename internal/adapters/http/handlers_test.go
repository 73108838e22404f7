package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/mapcanvas/internal/adapters/http"
	"github.com/samirrijal/mapcanvas/internal/adapters/viewport"
	"github.com/samirrijal/mapcanvas/internal/core/domain"
	"github.com/samirrijal/mapcanvas/internal/core/usecases"
	"github.com/samirrijal/mapcanvas/internal/pkg/geocodec"
)

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

type depsOptions struct {
	edit     any
	skipBase bool
}

func withAuthoring(o *depsOptions) { o.edit = "true" }
func withoutBase(o *depsOptions)   { o.skipBase = true }

// makeDeps wires a real scene, tile grid and annotation layer with the
// reference map geometry: 5 rows by 4 cols of 588x600 tiles, zoom 1..4.
func makeDeps(t *testing.T, opts ...func(*depsOptions)) *handler.Dependencies {
	t.Helper()
	var o depsOptions
	for _, fn := range opts {
		fn(&o)
	}

	scene, err := viewport.New(viewport.Options{
		MinZoom:     1,
		MaxZoom:     4,
		InitialZoom: 1,
		Center:      domain.Coordinate{X: 223.5, Y: -298},
		MaxBounds: domain.GeoBounds{
			SouthWest: domain.Coordinate{X: 73.6875, Y: -449.875},
			NorthEast: domain.Coordinate{X: 368, Y: -69.5},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	proj := usecases.NewCoordinateProjector(scene, 588, 600)
	grid := usecases.NewTileGrid(scene, proj)
	grid.Build(context.Background(), domain.GridSize{Rows: 5, Cols: 4}, usecases.PatternURL("/assets/map/row-{row}-col-{col}.png"))

	layer := usecases.NewAnnotationLayer(scene)
	if !o.skipBase {
		base := domain.NewFeatureCollection(
			domain.Feature{ID: "town", Geometry: domain.Point{At: domain.Coordinate{X: 200, Y: -250}}, Properties: map[string]any{"name": "Town"}},
			domain.Feature{ID: "road", Geometry: domain.LineString{Path: []domain.Coordinate{{X: 100, Y: -100}, {X: 150, Y: -120}}}},
		)
		if err := layer.LoadBase(base); err != nil {
			t.Fatal(err)
		}
	}

	session, err := usecases.AttachDrawSession(o.edit, layer, domain.IconOptions{IconURL: "/assets/icons/quest.png"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	return &handler.Dependencies{
		Scene:   scene,
		Tiles:   grid,
		Layer:   layer,
		Session: session,
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

func get(t *testing.T, app *fiber.App, path string) (int, []byte) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, readBody(t, resp.Body)
}

// ---- Map handler tests ----

func TestScene_Manifest(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body := get(t, app, "/v1/scene")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var m viewport.Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		t.Fatal(err)
	}
	if m.CRS != "simple" {
		t.Errorf("expected crs simple, got %q", m.CRS)
	}
	if m.MinZoom != 1 || m.MaxZoom != 4 || m.Zoom != 1 {
		t.Errorf("unexpected zoom range %d..%d @%d", m.MinZoom, m.MaxZoom, m.Zoom)
	}
	// 20 tiles plus the base vector layer
	if len(m.Layers) != 21 {
		t.Errorf("expected 21 layers, got %d", len(m.Layers))
	}
	if m.DrawControls != nil {
		t.Error("expected no draw controls without authoring")
	}
}

func TestTiles_Bounds(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body := get(t, app, "/v1/tiles")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result handler.TilesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Tiles) != 20 {
		t.Fatalf("expected 20 tiles, got %d", len(result.Tiles))
	}
	if result.OverlayZoom != 3 {
		t.Errorf("expected overlay zoom 3, got %d", result.OverlayZoom)
	}

	first := result.Tiles[0]
	if first.Row != 1 || first.Col != 1 || first.URL != "/assets/map/row-1-col-1.png" {
		t.Errorf("unexpected first tile %+v", first.TileSpec)
	}
	wantSW := domain.Coordinate{X: 73.5, Y: -150.25}
	wantNE := domain.Coordinate{X: 147.25, Y: -75}
	if first.Bounds.SouthWest != wantSW || first.Bounds.NorthEast != wantNE {
		t.Errorf("expected bounds %v/%v, got %v/%v", wantSW, wantNE, first.Bounds.SouthWest, first.Bounds.NorthEast)
	}
}

func TestProjectionBounds(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body := get(t, app, "/v1/projection/bounds?col=0&row=0&tile_width=256&tile_height=256&zoom=0")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var result handler.ProjectionBoundsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	wantSW := domain.Coordinate{X: 0, Y: -258}
	wantNE := domain.Coordinate{X: 258, Y: 0}
	if result.Bounds.SouthWest != wantSW || result.Bounds.NorthEast != wantNE {
		t.Errorf("expected %v/%v, got %v/%v", wantSW, wantNE, result.Bounds.SouthWest, result.Bounds.NorthEast)
	}
}

func TestProjectionBounds_BadParams(t *testing.T) {
	app := setupApp(makeDeps(t))

	for _, path := range []string{
		"/v1/projection/bounds?row=1",
		"/v1/projection/bounds?col=x&row=1",
		"/v1/projection/bounds?col=1&row=1&tile_width=0",
	} {
		status, body := get(t, app, path)
		if status != 400 {
			t.Errorf("%s: expected 400, got %d", path, status)
		}
		var apiErr handler.APIError
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Code != "bad_request" {
			t.Errorf("%s: expected bad_request envelope, got %s", path, body)
		}
	}
}

func TestBase_GeoJSON(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/base", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != handler.GeoJSONMediaType {
		t.Errorf("expected %s, got %q", handler.GeoJSONMediaType, ct)
	}

	fc, err := geocodec.Decode(readBody(t, resp.Body))
	if err != nil {
		t.Fatal(err)
	}
	if fc.Len() != 2 {
		t.Errorf("expected 2 base features, got %d", fc.Len())
	}
}

func TestBase_NotLoaded(t *testing.T) {
	app := setupApp(makeDeps(t, withoutBase))

	status, _ := get(t, app, "/v1/base")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestScene_ETag(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/scene", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest("GET", "/v1/scene", nil)
	req.Header.Set("If-None-Match", etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// ---- Authorization ----

func TestAuthoringDisabled(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body := get(t, app, "/v1/session")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var st handler.SessionResponse
	json.Unmarshal(body, &st)
	if st.Authorized || st.State != domain.StateInactive {
		t.Errorf("expected inactive unauthorized session, got %+v", st)
	}

	if status, _ := postJSON(t, app, "/v1/session/tool", `{"tool":"marker"}`); status != 404 && status != 405 {
		t.Errorf("expected tool selection route to be absent, got %d", status)
	}
	if status, _ := get(t, app, "/v1/annotations/export"); status != 404 {
		t.Errorf("expected 404 for export, got %d", status)
	}
}

func TestAuthoringDisabled_NonStringFlag(t *testing.T) {
	deps := makeDeps(t, func(o *depsOptions) { o.edit = true })
	if deps.Session != nil {
		t.Fatal("boolean true must not enable authoring")
	}
}

// ---- Authoring handler tests ----

func TestDrawMarker_ExportFile(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	status, body := postJSON(t, app, "/v1/session/tool", `{"tool":"marker"}`)
	if status != 200 {
		t.Fatalf("select tool: expected 200, got %d: %s", status, body)
	}
	var st domain.SessionStatus
	json.Unmarshal(body, &st)
	if st.State != domain.StateDrawing || st.Tool != domain.KindMarker {
		t.Errorf("expected drawing marker, got %+v", st)
	}

	status, body = postJSON(t, app, "/v1/session/pointer", `{"action":"click","x":100,"y":-100}`)
	if status != 201 {
		t.Fatalf("pointer: expected 201, got %d: %s", status, body)
	}
	var shape struct {
		Status  domain.SessionStatus `json:"status"`
		Feature json.RawMessage      `json:"feature"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		t.Fatal(err)
	}
	if shape.Status.State != domain.StateIdle || shape.Status.Features != 1 {
		t.Errorf("expected idle with 1 feature, got %+v", shape.Status)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/annotations/export", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("export: expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/json" {
		t.Errorf("expected text/json, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, `filename="data.geojson"`) {
		t.Errorf("expected data.geojson attachment, got %q", cd)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("expected no-store, got %q", cc)
	}

	fc, err := geocodec.Decode(readBody(t, resp.Body))
	if err != nil {
		t.Fatal(err)
	}
	if fc.Len() != 1 {
		t.Fatalf("expected 1 exported feature, got %d", fc.Len())
	}
	p, ok := fc.Features[0].Geometry.(domain.Point)
	if !ok || p.At != (domain.Coordinate{X: 100, Y: -100}) {
		t.Errorf("expected marker at (100,-100), got %#v", fc.Features[0].Geometry)
	}
}

func TestExport_DataURI(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	status, body := get(t, app, "/v1/annotations/export?format=datauri")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var link handler.ExportLink
	if err := json.Unmarshal(body, &link); err != nil {
		t.Fatal(err)
	}
	if link.Filename != "data.geojson" || link.Count != 0 {
		t.Errorf("unexpected link %+v", link)
	}
	if !strings.HasPrefix(link.Href, "data:text/json;charset=utf-8,") {
		t.Errorf("unexpected href %q", link.Href)
	}

	if status, _ := get(t, app, "/v1/annotations/export?format=xml"); status != 400 {
		t.Errorf("expected 400 for unknown format, got %d", status)
	}
}

func TestDrawPolygon_Finish(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	postJSON(t, app, "/v1/session/tool", `{"tool":"polygon"}`)
	for _, ev := range []string{
		`{"action":"click","x":100,"y":-100}`,
		`{"action":"click","x":150,"y":-100}`,
		`{"action":"click","x":150,"y":-150}`,
	} {
		if status, body := postJSON(t, app, "/v1/session/pointer", ev); status != 200 {
			t.Fatalf("vertex %s: expected 200, got %d: %s", ev, status, body)
		}
	}

	status, body := postJSON(t, app, "/v1/session/finish", ``)
	if status != 201 {
		t.Fatalf("finish: expected 201, got %d: %s", status, body)
	}

	status, body = get(t, app, "/v1/annotations")
	if status != 200 {
		t.Fatalf("list: expected 200, got %d", status)
	}
	var list struct {
		Data []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatal(err)
	}
	if list.Pagination.Total != 1 || len(list.Data) != 1 {
		t.Fatalf("expected 1 annotation, got %+v", list.Pagination)
	}
	if list.Data[0].Geometry.Type != "Polygon" {
		t.Errorf("expected Polygon, got %q", list.Data[0].Geometry.Type)
	}
}

func TestSession_Conflicts(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	if status, _ := postJSON(t, app, "/v1/session/pointer", `{"action":"click","x":1,"y":1}`); status != 409 {
		t.Errorf("pointer while idle: expected 409, got %d", status)
	}
	if status, _ := postJSON(t, app, "/v1/session/undo", ``); status != 409 {
		t.Errorf("undo while idle: expected 409, got %d", status)
	}
	if status, _ := postJSON(t, app, "/v1/session/finish", ``); status != 409 {
		t.Errorf("finish while idle: expected 409, got %d", status)
	}

	status, body := postJSON(t, app, "/v1/session/cancel", ``)
	if status != 200 {
		t.Errorf("cancel while idle: expected 200, got %d", status)
	}
	var st domain.SessionStatus
	json.Unmarshal(body, &st)
	if st.State != domain.StateIdle {
		t.Errorf("expected idle, got %s", st.State)
	}
}

func TestSession_BadInput(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	if status, _ := postJSON(t, app, "/v1/session/tool", `{"tool":"hexagon"}`); status != 400 {
		t.Errorf("unknown tool: expected 400, got %d", status)
	}
	postJSON(t, app, "/v1/session/tool", `{"tool":"marker"}`)
	if status, _ := postJSON(t, app, "/v1/session/pointer", `{"action":"click","x":1}`); status != 400 {
		t.Errorf("missing y: expected 400, got %d", status)
	}
	if status, _ := postJSON(t, app, "/v1/session/pointer", `{"action":"hover","x":1,"y":1}`); status != 400 {
		t.Errorf("unknown action: expected 400, got %d", status)
	}
	if status, _ := postJSON(t, app, "/v1/session/pointer", `{"action":"click","x":1,"y":1,"zoom":-1}`); status != 400 {
		t.Errorf("negative zoom: expected 400, got %d", status)
	}
	if status, _ := postJSON(t, app, "/v1/session/pointer", `{"action":"click","x":1,"y":1,"zoom":99}`); status != 400 {
		t.Errorf("zoom above max: expected 400, got %d", status)
	}
}

func TestImport_GetDeleteClear(t *testing.T) {
	deps := makeDeps(t, withAuthoring)
	app := setupApp(deps)

	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","id":"a","geometry":{"type":"Point","coordinates":[10,-10]},"properties":{}},
		{"type":"Feature","id":"b","geometry":{"type":"Point","coordinates":[20,-20]},"properties":{"draw:shape":"circle","draw:radius":5}}
	]}`
	status, body := postJSON(t, app, "/v1/annotations/import", doc)
	if status != 201 {
		t.Fatalf("import: expected 201, got %d: %s", status, body)
	}

	status, body = get(t, app, "/v1/annotations/b")
	if status != 200 {
		t.Fatalf("get: expected 200, got %d", status)
	}
	f, err := geocodec.DecodeFeature(body)
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind() != domain.KindCircle {
		t.Errorf("expected circle, got %s", f.Kind())
	}

	// Duplicate IDs reject the whole import
	if status, _ := postJSON(t, app, "/v1/annotations/import", doc); status != 409 {
		t.Errorf("duplicate import: expected 409, got %d", status)
	}
	if n := deps.Session.Group().Len(); n != 2 {
		t.Errorf("expected 2 features after rejected import, got %d", n)
	}

	resp, _ := app.Test(httptest.NewRequest("DELETE", "/v1/annotations/a", nil), -1)
	if resp.StatusCode != 204 {
		t.Errorf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = app.Test(httptest.NewRequest("DELETE", "/v1/annotations/a", nil), -1)
	if resp.StatusCode != 404 {
		t.Errorf("second delete: expected 404, got %d", resp.StatusCode)
	}

	status, body = postJSON(t, app, "/v1/annotations/clear", ``)
	if status != 200 {
		t.Fatalf("clear: expected 200, got %d", status)
	}
	var cleared struct {
		Removed int `json:"removed"`
	}
	json.Unmarshal(body, &cleared)
	if cleared.Removed != 1 {
		t.Errorf("expected 1 removed, got %d", cleared.Removed)
	}

	// Clearing an empty group succeeds
	if status, _ := postJSON(t, app, "/v1/annotations/clear", ``); status != 200 {
		t.Errorf("second clear: expected 200, got %d", status)
	}
}

func TestImport_Malformed(t *testing.T) {
	deps := makeDeps(t, withAuthoring)
	app := setupApp(deps)

	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[10,-10]},"properties":{}},
		{"type":"Feature","geometry":{"type":"MultiPoint","coordinates":[[1,1]]},"properties":{}}
	]}`
	if status, _ := postJSON(t, app, "/v1/annotations/import", doc); status != 400 {
		t.Errorf("expected 400, got %d", status)
	}
	if n := deps.Session.Group().Len(); n != 0 {
		t.Errorf("expected nothing imported, got %d", n)
	}
}

func TestListAnnotations_LinkHeader(t *testing.T) {
	deps := makeDeps(t, withAuthoring)
	for i := 0; i < 5; i++ {
		if _, err := deps.Session.Group().Add(domain.Feature{Geometry: domain.Point{At: domain.Coordinate{X: float64(i), Y: -1}}}); err != nil {
			t.Fatal(err)
		}
	}
	app := setupApp(deps)

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/annotations?offset=0&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	link := resp.Header.Get("Link")
	if !strings.Contains(link, `rel="next"`) || !strings.Contains(link, `rel="last"`) {
		t.Errorf("expected next and last links, got %s", link)
	}

	if status, _ := get(t, app, "/v1/annotations?limit=0"); status != 400 {
		t.Errorf("expected 400 for limit=0, got %d", status)
	}
}

// ---- GraphQL ----

func TestGraphQL_SceneAndSession(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	status, body := postJSON(t, app, "/graphql", `{"query":"{ scene { crs max_zoom } tiles { row col } baseFeatures { id kind geometry } session { authorized state } }"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data struct {
			Scene struct {
				CRS     string `json:"crs"`
				MaxZoom int    `json:"max_zoom"`
			} `json:"scene"`
			Tiles        []struct{ Row, Col int } `json:"tiles"`
			BaseFeatures []struct {
				ID       string         `json:"id"`
				Kind     string         `json:"kind"`
				Geometry map[string]any `json:"geometry"`
			} `json:"baseFeatures"`
			Session struct {
				Authorized bool   `json:"authorized"`
				State      string `json:"state"`
			} `json:"session"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if result.Data.Scene.CRS != "simple" || result.Data.Scene.MaxZoom != 4 {
		t.Errorf("unexpected scene %+v", result.Data.Scene)
	}
	if len(result.Data.Tiles) != 20 {
		t.Errorf("expected 20 tiles, got %d", len(result.Data.Tiles))
	}
	if len(result.Data.BaseFeatures) != 2 || result.Data.BaseFeatures[0].Geometry["type"] != "Point" {
		t.Errorf("unexpected base features %+v", result.Data.BaseFeatures)
	}
	if !result.Data.Session.Authorized || result.Data.Session.State != "idle" {
		t.Errorf("unexpected session %+v", result.Data.Session)
	}
}

func TestGraphQL_AnnotationsDisabled(t *testing.T) {
	app := setupApp(makeDeps(t))

	_, body := postJSON(t, app, "/graphql", `{"query":"{ annotations { id } }"}`)
	if !strings.Contains(string(body), "authoring is disabled") {
		t.Errorf("expected authoring error, got %s", body)
	}
}

// ---- Health handler tests ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body := get(t, app, "/v1/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var result map[string]interface{}
	json.Unmarshal(body, &result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady(t *testing.T) {
	// DB, NATS and cache are optional; unconfigured ones do not fail readiness
	app := setupApp(makeDeps(t))
	if status, body := get(t, app, "/v1/ready"); status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	app = setupApp(makeDeps(t, withoutBase))
	if status, _ := get(t, app, "/v1/ready"); status != 503 {
		t.Fatalf("expected 503 without base, got %d", status)
	}
}

type stubRelay struct{ connected bool }

func (s *stubRelay) Subscribe(string, func([]byte)) (func() error, error) {
	return func() error { return nil }, nil
}
func (s *stubRelay) Connected() bool { return s.connected }

func TestReady_NATSDisconnected(t *testing.T) {
	deps := makeDeps(t)
	deps.Events = &stubRelay{connected: false}
	app := setupApp(deps)

	status, body := get(t, app, "/v1/ready")
	if status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
	if !strings.Contains(string(body), "disconnected") {
		t.Errorf("expected nats disconnected check, got %s", body)
	}
}

// ---- Headers ----

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(t))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestCacheControl(t *testing.T) {
	app := setupApp(makeDeps(t, withAuthoring))

	for path, want := range map[string]string{
		"/v1/tiles":       "public, max-age=3600",
		"/v1/scene":       "public, max-age=300",
		"/v1/session":     "no-store",
		"/v1/annotations": "no-store",
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", path, nil), -1)
		if got := resp.Header.Get("Cache-Control"); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(handler.AccessLogMiddleware())
	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
