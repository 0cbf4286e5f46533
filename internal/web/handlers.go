package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/followpick/internal/config"
	"github.com/hpungsan/followpick/internal/errors"
	"github.com/hpungsan/followpick/internal/follower"
	"github.com/hpungsan/followpick/internal/ops"
)

// maxBodyBytes bounds /api/pick request bodies.
const maxBodyBytes = 64 << 10

// defaultWindow applies when an orientation request omits time_window.
const defaultWindow = "1"

// Handlers contains HTTP route handlers for the web UI and JSON API.
type Handlers struct {
	store    Store
	source   follower.Source
	cfg      *config.Config
	renderer *Renderer
}

// pickParams is a pick request from either the form or the JSON API.
type pickParams struct {
	Username     string
	Type         string // "general" (default) or "orientation"
	Count        int
	Window       string
	Policy       string
	FullBaseline bool
}

// apiPickRequest is the POST /api/pick body. time_window may be a number of
// hours or a duration string like "30m".
type apiPickRequest struct {
	Username     string          `json:"username"`
	Type         string          `json:"type"`
	Count        int             `json:"count"`
	TimeWindow   json.RawMessage `json:"time_window"`
	Policy       string          `json:"policy"`
	FullBaseline bool            `json:"full_baseline"`
}

// apiWinner is the winner shape returned by POST /api/pick.
type apiWinner struct {
	Username      string `json:"username"`
	FullName      string `json:"full_name"`
	IsPrivate     bool   `json:"is_private"`
	IsVerified    bool   `json:"is_verified"`
	ProfilePicURL string `json:"profile_pic_url"`
}

// apiPickResponse is the success body of POST /api/pick.
type apiPickResponse struct {
	Success   bool            `json:"success"`
	Winner    apiWinner       `json:"winner"`
	Info      string          `json:"info"`
	Timestamp string          `json:"timestamp"`
	Result    *ops.PickOutput `json:"result"`
}

// HandleIndex handles GET / and serves the pick form.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	inv, err := ops.Inventory(r.Context(), h.store)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "index", IndexPageData{
		PageData:      h.renderer.page("Pick a winner", "pick"),
		Presets:       ops.WindowPresets,
		DefaultCount:  ops.ClampCount(0, h.cfg),
		MaxCount:      ops.ClampCount(1<<30, h.cfg),
		Policy:        h.cfg.BaselinePolicy,
		KeyConfigured: h.source != nil,
		Subjects:      inv.Subjects,
	})
}

// HandlePick handles POST /pick and renders the result as HTML.
func (h *Handlers) HandlePick(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	params := pickParams{
		Username:     r.FormValue("username"),
		Type:         r.FormValue("type"),
		Window:       r.FormValue("time_window"),
		Policy:       r.FormValue("policy"),
		FullBaseline: r.FormValue("full_baseline") == "true" || r.FormValue("full_baseline") == "on",
	}
	if c := strings.TrimSpace(r.FormValue("count")); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("count must be an integer"))
			return
		}
		params.Count = n
	}

	out, err := h.runPick(r, params)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "result", ResultPageData{
		PageData:     h.renderer.page("Winner", "pick"),
		Result:       out,
		Announcement: renderMarkdown(announcement(out)),
	})
}

// HandleAPIPick handles POST /api/pick, the JSON pick endpoint.
func (h *Handlers) HandleAPIPick(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("failed to read request body"))
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("no data provided"))
		return
	}

	var req apiPickRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("request body must be a JSON object"))
		return
	}
	window, err := rawWindow(req.TimeWindow)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	out, err := h.runPick(r, pickParams{
		Username:     req.Username,
		Type:         req.Type,
		Count:        req.Count,
		Window:       window,
		Policy:       req.Policy,
		FullBaseline: req.FullBaseline,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, apiPickResponse{
		Success: true,
		Winner: apiWinner{
			Username:      out.Winner.Handle,
			FullName:      out.Winner.DisplayName,
			IsPrivate:     out.Winner.IsPrivate,
			IsVerified:    out.Winner.IsVerified,
			ProfilePicURL: out.Winner.AvatarURL,
		},
		Info:      summaryLine(out),
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
		Result:    out,
	})
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":             "healthy",
		"api_key_configured": h.source != nil,
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleSnapshots handles GET /snapshots: snapshots of one subject, or
// the subject inventory when no subject is given.
func (h *Handlers) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	subject := strings.TrimSpace(r.URL.Query().Get("subject"))
	data := SnapshotsPageData{PageData: h.renderer.page("Snapshots", "snapshots")}

	if subject == "" {
		inv, err := ops.Inventory(r.Context(), h.store)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		if wantsJSON(r) {
			renderJSON(w, http.StatusOK, inv)
			return
		}
		data.Subjects = inv.Subjects
		h.renderer.renderPage(w, "snapshots", data)
		return
	}

	result, err := ops.List(r.Context(), h.store, ops.ListInput{
		Subject: subject,
		Limit:   parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:  parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data.Title = "Snapshots of @" + result.Subject
	data.Subject = result.Subject
	data.Items = result.Items
	data.Pagination = result.Pagination
	h.renderer.renderPage(w, "snapshots", data)
}

// HandleSnapshotDetail handles GET /snapshots/{id}.
func (h *Handlers) HandleSnapshotDetail(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Fetch(r.Context(), h.store, ops.FetchInput{
		ID:               r.PathValue("id"),
		IncludeFollowers: true,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: h.renderer.page("Snapshot "+out.ID, "snapshots"),
		Snapshot: out,
	})
}

// runPick dispatches a pick request to the matching operation.
func (h *Handlers) runPick(r *http.Request, p pickParams) (*ops.PickOutput, error) {
	if strings.TrimSpace(p.Username) == "" {
		return nil, errors.NewInvalidRequest("username is required")
	}
	if h.source == nil {
		return nil, errors.NewConfig("API key not configured")
	}

	switch strings.ToLower(strings.TrimSpace(p.Type)) {
	case "", ops.ModeGeneral:
		if p.Count < 0 {
			return nil, errors.NewInvalidRequest("count must not be negative")
		}
		return ops.PickGeneral(r.Context(), h.source, h.cfg, ops.PickGeneralInput{
			Subject: p.Username,
			Count:   p.Count,
		})

	case ops.ModeOrientation:
		raw := p.Window
		if strings.TrimSpace(raw) == "" {
			raw = defaultWindow
		}
		window, err := ops.ParseWindow(raw)
		if err != nil {
			return nil, err
		}
		// An empty policy defers to the configured one.
		var policy ops.BaselinePolicy
		if strings.TrimSpace(p.Policy) != "" {
			if policy, err = ops.ParsePolicy(p.Policy); err != nil {
				return nil, err
			}
		}
		return ops.PickOrientation(r.Context(), h.store, h.source, h.cfg, ops.PickOrientationInput{
			Subject:      p.Username,
			Window:       window,
			Policy:       policy,
			FullBaseline: p.FullBaseline,
		})

	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("type must be %q or %q", ops.ModeGeneral, ops.ModeOrientation))
	}
}

// rawWindow accepts time_window as a JSON number or string.
func rawWindow(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.NewInvalidRequest("time_window must be a number or a string")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.NewInvalidRequest("time_window must be a number or a string")
	}
	return n.String(), nil
}

// summaryLine describes where the winner was drawn from.
func summaryLine(out *ops.PickOutput) string {
	o := out.Orientation
	if o == nil {
		return fmt.Sprintf("from %d total followers", out.CandidateCount)
	}
	line := fmt.Sprintf("from %d new followers in %s (baseline %s old)",
		out.CandidateCount, errors.FormatHours(o.WindowHours), errors.FormatHours(o.BaselineAgeHours))
	if o.AssumedFromCountOnly {
		line += ", assumed from follower count"
	}
	return line
}

// announcement builds the markdown shown on the result page.
func announcement(out *ops.PickOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s wins\n\n", escapeMarkdown(out.Winner.Label()))
	if out.Winner.DisplayName != "" {
		fmt.Fprintf(&b, "**%s**", escapeMarkdown(out.Winner.DisplayName))
		if out.Winner.IsVerified {
			b.WriteString(" (verified)")
		}
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Drawn %s of @%s.\n", summaryLine(out), escapeMarkdown(out.Subject))
	if o := out.Orientation; o != nil && o.Disclosure != "" {
		fmt.Fprintf(&b, "\n> %s\n", o.Disclosure)
	}
	return b.String()
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
