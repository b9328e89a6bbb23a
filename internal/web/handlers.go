package web

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tribalgis/claimgis/internal/claim"
	"github.com/tribalgis/claimgis/internal/config"
	"github.com/tribalgis/claimgis/internal/errors"
	"github.com/tribalgis/claimgis/internal/ops"
	"github.com/tribalgis/claimgis/internal/pipeline"
)

// Handlers contains HTTP route handlers.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	renderer *Renderer
	sessions *SessionStore
	creds    CredentialStore
}

// HandleExtract handles POST /extract — run the extraction pipeline on
// an uploaded image and return the annotated entity list.
func (h *Handlers) HandleExtract(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		renderJSONError(w, errors.NewUploadMissing())
		return
	}
	defer file.Close()

	result, err := h.pipe.Run(r.Context(), header.Filename, file)
	if err != nil {
		renderJSONError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// SaveRequest is the POST /save body: the extraction result the client
// wants to persist.
type SaveRequest struct {
	Text     string         `json:"text"`
	Entities []claim.Entity `json:"entities"`
	Filename string         `json:"filename"`
}

// HandleSave handles POST /save — persist a claim and its geocoded points.
func (h *Handlers) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderJSONError(w, errors.NewInvalidRequest("no JSON body"))
		return
	}

	output, err := ops.Save(r.Context(), h.db, ops.SaveInput{
		Text:     req.Text,
		Entities: req.Entities,
		Filename: req.Filename,
	})
	if err != nil {
		renderJSONError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, output)
}

// HandleMarkers handles GET /markers — all saved points, newest-first.
func (h *Handlers) HandleMarkers(w http.ResponseWriter, r *http.Request) {
	points, err := ops.Markers(r.Context(), h.db)
	if err != nil {
		renderJSONError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, points)
}

// HandleDBData handles GET /db_data — all claims and points for the viewer.
func (h *Handlers) HandleDBData(w http.ResponseWriter, r *http.Request) {
	output, err := ops.Dump(r.Context(), h.db)
	if err != nil {
		renderJSONError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, output)
}

// loginRequest is the JSON login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLoginPage handles GET /login.
func (h *Handlers) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "login", LoginPageData{
		PageData: PageData{Title: "Login", Version: h.renderer.version},
	})
}

// HandleLogin handles POST /login with JSON or form credentials.
// Success issues a session cookie.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var username, password string
	wantsJSON := strings.Contains(r.Header.Get("Content-Type"), "application/json")

	if wantsJSON {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			renderJSONError(w, errors.NewInvalidRequest("no JSON body"))
			return
		}
		username, password = req.Username, req.Password
	} else {
		if err := r.ParseForm(); err != nil {
			renderJSONError(w, errors.NewInvalidRequest("invalid form data"))
			return
		}
		username, password = r.FormValue("username"), r.FormValue("password")
	}

	if !h.creds.Authenticate(username, password) {
		if wantsJSON {
			renderJSONError(w, errors.NewUnauthorized(""))
			return
		}
		h.renderer.renderPageStatus(w, http.StatusUnauthorized, "login", LoginPageData{
			PageData: PageData{Title: "Login", Version: h.renderer.version},
			Error:    "Invalid credentials",
		})
		return
	}

	token, err := h.sessions.Create(username)
	if err != nil {
		renderJSONError(w, errors.NewInternal(err))
		return
	}
	setSessionCookie(w, token, h.sessions.ttl)

	if wantsJSON {
		renderJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	http.Redirect(w, r, "/app", http.StatusFound)
}

// HandleLogout handles GET /logout — drop the session and bounce to /login.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		h.sessions.Delete(cookie.Value)
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// HandleApp handles GET /app — the map UI (login required).
func (h *Handlers) HandleApp(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "app", PageData{
		Title:   "ClaimGIS",
		Version: h.renderer.version,
	})
}

// HandleDBView handles GET /db — the database viewer page.
func (h *Handlers) HandleDBView(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "db", PageData{
		Title:   "Database Viewer",
		Version: h.renderer.version,
	})
}

// HandleClaimDetail handles GET /db/claims/{id} — one claim rendered as
// a report with its points.
func (h *Handlers) HandleClaimDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		renderJSONError(w, errors.NewInvalidRequest("claim ID is required"))
		return
	}

	output, err := ops.Fetch(r.Context(), h.db, id)
	if err != nil {
		h.renderer.renderError(w, err)
		return
	}

	h.renderer.renderPage(w, "claim", ClaimPageData{
		PageData:     PageData{Title: output.Claim.Filename, Version: h.renderer.version},
		Claim:        output.Claim,
		Points:       output.Points,
		RenderedHTML: renderClaimReport(output.Claim, output.Points),
	})
}
