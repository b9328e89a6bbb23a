package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/config"
	"github.com/tribalgis/claimgis/internal/db"
	"github.com/tribalgis/claimgis/internal/geocode"
	"github.com/tribalgis/claimgis/internal/ner"
	"github.com/tribalgis/claimgis/internal/ops"
	"github.com/tribalgis/claimgis/internal/pipeline"
)

// stub collaborators for the pipeline

type stubEngine struct{ text string }

func (e *stubEngine) Name() string { return "stub" }
func (e *stubEngine) Recognize(context.Context, string) (string, error) {
	return e.text, nil
}

type stubExtractor struct{ spans []ner.Span }

func (e *stubExtractor) Name() string { return "stub" }
func (e *stubExtractor) Extract(context.Context, string) ([]ner.Span, error) {
	return e.spans, nil
}

type stubGeocoder struct{ places map[string]*geocode.Result }

func (g *stubGeocoder) Geocode(_ context.Context, query string) (*geocode.Result, error) {
	return g.places[query], nil
}

func setupTest(t *testing.T) *Handlers {
	t.Helper()
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	renderer := NewRenderer(templateSub, "test")

	pipe := pipeline.New(
		tmpDir+"/uploads",
		&stubEngine{text: "Claim filed near Delhi"},
		&stubExtractor{spans: []ner.Span{
			{Label: "GPE", Text: "Delhi"},
			{Label: "DATE", Text: "12 March 2021"},
		}},
		&stubGeocoder{places: map[string]*geocode.Result{
			"Delhi": {Lat: 28.6139, Lon: 77.209},
		}},
		nil,
	)

	return &Handlers{
		db:       database,
		cfg:      cfg,
		pipe:     pipe,
		renderer: renderer,
		sessions: NewSessionStore(time.Hour),
		creds:    CredentialsFromConfig(cfg),
	}
}

// seedClaim saves a claim with one geocoded entity and returns its ID.
func seedClaim(t *testing.T, h *Handlers, filename string) string {
	t.Helper()
	out, err := ops.Save(context.Background(), h.db, ops.SaveInput{
		Text:     "Claim filed near Delhi",
		Filename: filename,
		Entities: []claim.Entity{
			{Label: "GPE", Text: "Delhi", Seq: 1, Coordinates: &claim.Coordinates{Lat: 28.6139, Lon: 77.209}},
		},
	})
	if err != nil {
		t.Fatalf("seed claim %q: %v", filename, err)
	}
	return out.ClaimID
}

// multipartUpload builds a multipart body with one file part.
func multipartUpload(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// --- HandleExtract ---

func TestHandleExtract(t *testing.T) {
	h := setupTest(t)

	body, contentType := multipartUpload(t, "file", "scan.png", "fake image bytes")
	req := httptest.NewRequest("POST", "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.HandleExtract(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Text     string         `json:"text"`
		Entities []claim.Entity `json:"entities"`
		Filename string         `json:"filename"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Text != "Claim filed near Delhi" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Filename != "scan.png" {
		t.Errorf("filename = %q, want scan.png", result.Filename)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("entities = %d, want 2", len(result.Entities))
	}
	if result.Entities[0].Coordinates == nil {
		t.Error("Delhi should be geocoded")
	}
	if result.Entities[1].Coordinates != nil {
		t.Error("DATE should not be geocoded")
	}
}

func TestHandleExtract_NoFile(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/extract", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.HandleExtract(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "UPLOAD_MISSING" {
		t.Errorf("code = %v, want UPLOAD_MISSING", body["code"])
	}
	if body["error"] != "no file uploaded" {
		t.Errorf("error = %v, want \"no file uploaded\"", body["error"])
	}
}

func TestHandleExtract_WrongFieldName(t *testing.T) {
	h := setupTest(t)

	body, contentType := multipartUpload(t, "image", "scan.png", "bytes")
	req := httptest.NewRequest("POST", "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.HandleExtract(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// --- HandleSave ---

func TestHandleSave(t *testing.T) {
	h := setupTest(t)

	payload := `{
		"text": "Claim filed near Delhi",
		"filename": "scan.png",
		"entities": [
			{"label": "GPE", "text": "Delhi", "seq": 1, "coordinates": {"lat": 28.6139, "lon": 77.209}},
			{"label": "DATE", "text": "12 March 2021", "seq": 2}
		]
	}`
	req := httptest.NewRequest("POST", "/save", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleSave(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var out ops.SaveOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.ClaimID == "" {
		t.Errorf("output = %+v", out)
	}

	// One point persisted for the geocoded entity
	points, err := ops.Markers(context.Background(), h.db)
	if err != nil {
		t.Fatalf("Markers: %v", err)
	}
	if len(points) != 1 {
		t.Errorf("points = %d, want 1", len(points))
	}
}

func TestHandleSave_NoBody(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/save", strings.NewReader(""))
	rec := httptest.NewRecorder()
	h.HandleSave(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["code"] != "INVALID_REQUEST" {
		t.Errorf("code = %v, want INVALID_REQUEST", body["code"])
	}
}

// --- HandleMarkers ---

func TestHandleMarkers_Empty(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/markers", nil)
	rec := httptest.NewRecorder()
	h.HandleMarkers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	// Empty DB yields [], never null
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestHandleMarkers(t *testing.T) {
	h := setupTest(t)
	claimID := seedClaim(t, h, "scan.png")

	req := httptest.NewRequest("GET", "/markers", nil)
	rec := httptest.NewRecorder()
	h.HandleMarkers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var points []claim.Point
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("points = %d, want 1", len(points))
	}
	if points[0].ClaimID != claimID {
		t.Errorf("ClaimID = %q, want %q", points[0].ClaimID, claimID)
	}
	if points[0].Name != "Delhi" {
		t.Errorf("Name = %q, want Delhi", points[0].Name)
	}
}

// --- HandleDBData ---

func TestHandleDBData(t *testing.T) {
	h := setupTest(t)
	seedClaim(t, h, "scan.png")

	req := httptest.NewRequest("GET", "/db_data", nil)
	rec := httptest.NewRecorder()
	h.HandleDBData(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out ops.DumpOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Claims) != 1 || len(out.Points) != 1 {
		t.Errorf("claims = %d, points = %d, want 1 each", len(out.Claims), len(out.Points))
	}
}

// --- Login / session flow ---

func TestHandleLogin_Form(t *testing.T) {
	h := setupTest(t)

	form := url.Values{"username": {"admin"}, "password": {"admin123"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/app" {
		t.Errorf("Location = %q, want /app", loc)
	}

	cookies := rec.Result().Cookies()
	var found bool
	for _, c := range cookies {
		if c.Name == sessionCookie && c.Value != "" {
			found = true
			if !c.HttpOnly {
				t.Error("session cookie should be HttpOnly")
			}
		}
	}
	if !found {
		t.Error("session cookie not set")
	}
}

func TestHandleLogin_FormBadCredentials(t *testing.T) {
	h := setupTest(t)

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Error("login page should show the failure message")
	}
}

func TestHandleLogin_JSON(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"user","password":"user123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["success"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestHandleLogin_JSONBadCredentials(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"username":"user","password":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireLogin(t *testing.T) {
	h := setupTest(t)
	protected := h.requireLogin(h.HandleApp)

	// Without a session: redirect
	req := httptest.NewRequest("GET", "/app", nil)
	rec := httptest.NewRecorder()
	protected(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}

	// With a live session: page renders
	token, err := h.sessions.Create("admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	req = httptest.NewRequest("GET", "/app", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec = httptest.NewRecorder()
	protected(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	// With a bogus token: redirect again
	req = httptest.NewRequest("GET", "/app", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "forged"})
	rec = httptest.NewRecorder()
	protected(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
}

func TestHandleLogout(t *testing.T) {
	h := setupTest(t)

	token, err := h.sessions.Create("admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest("GET", "/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: token})
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	if _, ok := h.sessions.Get(token); ok {
		t.Error("session should be deleted after logout")
	}
}

// --- HandleClaimDetail ---

func TestHandleClaimDetail(t *testing.T) {
	h := setupTest(t)
	claimID := seedClaim(t, h, "scan.png")

	req := httptest.NewRequest("GET", "/db/claims/"+claimID, nil)
	req.SetPathValue("id", claimID)
	rec := httptest.NewRecorder()
	h.HandleClaimDetail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, claimID) {
		t.Error("page should include the claim id")
	}
	if !strings.Contains(body, "Delhi") {
		t.Error("page should include the geocoded point")
	}
}

func TestHandleClaimDetail_NotFound(t *testing.T) {
	h := setupTest(t)

	req := httptest.NewRequest("GET", "/db/claims/01HNOSUCH", nil)
	req.SetPathValue("id", "01HNOSUCH")
	rec := httptest.NewRecorder()
	h.HandleClaimDetail(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Error("browser route should render an HTML error page")
	}
}

// --- Routing ---

func TestServerRoutes(t *testing.T) {
	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	pipe := pipeline.New(tmpDir+"/uploads", &stubEngine{}, &stubExtractor{}, &stubGeocoder{}, nil)
	srv := NewServer(database, cfg, pipe, "test", "127.0.0.1", 0)

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/", http.StatusFound},       // redirect to /login
		{"GET", "/login", http.StatusOK},
		{"GET", "/app", http.StatusFound},    // no session
		{"GET", "/markers", http.StatusOK},
		{"GET", "/db_data", http.StatusOK},
		{"GET", "/db", http.StatusOK},
		{"GET", "/static/style.css", http.StatusOK},
		{"GET", "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, resp.StatusCode, tt.want)
		}
		if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("%s %s missing security headers", tt.method, tt.path)
		}
	}
}
