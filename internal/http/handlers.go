package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"predial/internal/dashboard"
	applog "predial/internal/log"
)

// pageView is the data every page template receives.
type pageView struct {
	Site     *dashboard.Site
	Page     *dashboard.Page
	Report   *dashboard.Report
	Error    string
	Branding bool
}

// pageSummary is one entry of the page list endpoint.
type pageSummary struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Heading string `json:"heading"`
	Sheet   string `json:"sheet"`
	URL     string `json:"url"`
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	}).Write(w)
}

// handleReady reports ready once the source can list its sheets.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.loadTimeout)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.lister == nil {
		checks["source"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else if names, err := s.lister.ListSheets(ctx); err != nil {
		checks["source"] = "failed: " + err.Error()
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["source"] = map[string]any{"status": "ok", "sheets": len(names)}
	}

	checks["security"] = map[string]any{
		"suspicious_requests":  s.detector.SuspiciousRequests(),
		"rate_limited_clients": s.limiter.ActiveClients(),
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleIndex redirects to the first page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("Página no encontrada").Write(w)
		return
	}
	if !allowGet(w, r) {
		return
	}
	if len(s.site.Pages) == 0 {
		NotFoundError("No hay páginas configuradas").Write(w)
		return
	}
	http.Redirect(w, r, pageURL(s.site.Pages[0].Slug), http.StatusFound)
}

// handlePage renders a full page with navigation.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "page.html")
}

// handlePagePartial renders only the report section of a page.
func (s *Server) handlePagePartial(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "report.html")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string) {
	if !allowGet(w, r) {
		return
	}
	page, ok := s.lookupPage(r)
	if !ok {
		NotFoundError("Página no encontrada").Write(w)
		return
	}

	view := pageView{Site: s.site, Page: page, Branding: s.branding.Enabled()}
	rep, err := s.buildReport(r.Context(), page)
	if err != nil {
		// The page fails on its own; the rest of the dashboard keeps working.
		view.Error = err.Error()
	}
	view.Report = rep

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, view); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err, "template", name, applog.FieldPage, page.Slug)
		InternalServerError("Error al generar la página").Write(w)
		return
	}
	NewResponse().HTML(buf.Bytes()).Write(w)
}

// handleAPIPages lists the configured pages.
func (s *Server) handleAPIPages(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	out := make([]pageSummary, 0, len(s.site.Pages))
	for _, p := range s.site.Pages {
		out = append(out, pageSummary{Slug: p.Slug, Title: p.Title, Heading: p.Heading, Sheet: p.Sheet, URL: pageURL(p.Slug)})
	}
	NewResponse().JSON(map[string]any{"title": s.site.Title, "pages": out}).Write(w)
}

// handleAPIPage returns one page report as JSON.
func (s *Server) handleAPIPage(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	page, ok := s.lookupPage(r)
	if !ok {
		JSONError(http.StatusNotFound, "page not found").Write(w)
		return
	}
	rep, err := s.buildReport(r.Context(), page)
	if err != nil {
		JSONError(http.StatusBadGateway, err.Error()).Write(w)
		return
	}
	NewResponse().JSON(rep).Write(w)
}

// handleBranding serves the logos resolved at startup.
func (s *Server) handleBranding(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if !s.branding.Enabled() {
		NotFoundError("Logo no disponible").Write(w)
		return
	}
	switch r.PathValue("side") {
	case "left":
		http.ServeFile(w, r, s.branding.Left)
	case "right":
		http.ServeFile(w, r, s.branding.Right)
	default:
		NotFoundError("Logo no disponible").Write(w)
	}
}

func (s *Server) lookupPage(r *http.Request) (*dashboard.Page, bool) {
	return s.site.Page(sanitizeInput(r.PathValue("slug")))
}

// buildReport loads the page's sheet with a bounded wait. Failures are
// logged here and returned for the caller to render.
func (s *Server) buildReport(ctx context.Context, page *dashboard.Page) (*dashboard.Report, error) {
	cctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	rep, err := s.builder.Build(cctx, page)
	if err != nil {
		var pe *dashboard.PageError
		if !errors.As(err, &pe) {
			pe = &dashboard.PageError{Slug: page.Slug, Sheet: page.Sheet, Err: err}
		}
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogPageError(ctx, pe.Slug, pe.Sheet, pe.Err)
		return nil, pe
	}
	return rep, nil
}
