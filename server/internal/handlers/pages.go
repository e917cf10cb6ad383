package handlers

import (
	"fmt"
	"html"
	"net/http"

	"github.com/quadhq/quad/internal/domain/services"
)

// Home serves the landing page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>QUAD</title></head>
<body>
<h1>QUAD</h1>
<p>Quality-driven software methodology for modern teams.</p>
<p><a href="/login">Sign in</a> &middot; <a href="/signup">Request access</a></p>
</body>
</html>`)
}

// Upgrade serves the plan-upgrade page shown when a tenant hits the seat ceiling
func (h *Handler) Upgrade(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	message := "Your team needs a bigger plan."
	if reason == services.SeatLimitReason {
		message = "Your company has reached the free-tier user limit. Upgrade to add more team members."
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Upgrade - QUAD</title></head>
<body>
<h1>Upgrade your plan</h1>
<p>%s</p>
<p><a href="/">Back to home</a></p>
</body>
</html>`, html.EscapeString(message))
}

// Signup serves the request-access page shown when no company matched the
// sign-in email domain
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	notice := ""
	if r.URL.Query().Get("reason") == "no-company" {
		notice = "<p>We couldn't find a company for your email. Request access below.</p>"
	}
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Request access - QUAD</title></head>
<body>
<h1>Request access</h1>
%s
<form method="post" action="/api/auth/request-access" data-email="%s">
  <input name="companyName" placeholder="Company name" required>
  <input name="adminEmail" type="email" value="%s" placeholder="Admin email" required>
  <select name="companySize">
    <option value="startup">Startup (1-5)</option>
    <option value="medium">Medium (6-50)</option>
    <option value="enterprise">Enterprise (50+)</option>
  </select>
  <input name="ssoProvider" placeholder="SSO provider" required>
  <textarea name="message" placeholder="Anything we should know?"></textarea>
  <button type="submit">Request access</button>
</form>
</body>
</html>`, notice, html.EscapeString(email), html.EscapeString(email))
}
