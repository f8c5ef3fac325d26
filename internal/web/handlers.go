package web

import (
	_ "embed"
	"errors"
	"html/template"
	"net/http"

	"teraBridgeBot/internal/token"
)

//go:embed templates/player.html
var playerHTML string

var playerTmpl = template.Must(template.New("player").Parse(playerHTML))

type playerPage struct {
	Denied       bool
	DeniedReason string
	FileName     string
	FileSize     string
	Source       string
	VideoURL     string
	AltURL       string
}

// handleHealth reports liveness for container orchestration probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// handleWatch renders the video player page. Access requires a valid
// token; token failures render an in-page denial rather than a bare
// status code so users who follow stale links see an explanation.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tok := q.Get("token")
	if tok == "" {
		s.renderDenied(w, "This player link requires an access token. Request the file again in the bot to get a fresh link.")
		return
	}

	grant, err := s.issuer.Validate(tok)
	if err != nil {
		reason := "This player link is not valid. Request the file again in the bot to get a fresh link."
		if errors.Is(err, token.ErrTokenExpired) {
			reason = "This player link has expired. Request the file again in the bot to get a fresh link."
		}
		s.logger.Warningf("Rejected watch request from %s: %v", r.RemoteAddr, err)
		s.renderDenied(w, reason)
		return
	}

	name := q.Get("name")
	if name == "" {
		http.Error(w, "Missing file name", http.StatusBadRequest)
		return
	}

	page := playerPage{
		FileName: name,
		FileSize: q.Get("size"),
		Source:   q.Get("source"),
		VideoURL: grant.Link,
		AltURL:   q.Get("alt"),
	}
	s.render(w, page)
}

func (s *Server) renderDenied(w http.ResponseWriter, reason string) {
	w.WriteHeader(http.StatusUnauthorized)
	s.render(w, playerPage{Denied: true, DeniedReason: reason})
}

func (s *Server) render(w http.ResponseWriter, page playerPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := playerTmpl.Execute(w, page); err != nil {
		s.logger.Errorf("Error rendering player template: %v", err)
	}
}
