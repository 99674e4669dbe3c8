package gemtracker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
)

type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
)

type cliError struct {
	status  int
	message string
	rawJSON []byte
}

func (e *cliError) Error() string {
	return e.message
}

func isValidOutput(v string) bool {
	return v == string(OutputText) || v == string(OutputJSON)
}

func FormatError(output Output, status int, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = http.StatusText(status)
	}

	if output == OutputJSON {
		payload := map[string]any{
			"status": status,
			"error":  msg,
		}
		raw, _ := json.Marshal(payload)
		return string(raw)
	}

	return fmt.Sprintf("error (%d): %s", status, msg)
}

func handleResponse(output Output, stdout io.Writer, resp *http.Response, reqErr error) error {
	if reqErr != nil {
		return &cliError{status: http.StatusBadGateway, message: reqErr.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &cliError{status: http.StatusInternalServerError, message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(output, resp.StatusCode, raw)
	}
	printBody(output, stdout, raw)
	return nil
}

func responseError(output Output, status int, raw []byte) *cliError {
	msg := extractErrorMessage(raw)
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	cErr := &cliError{status: status, message: msg}
	if output == OutputJSON && json.Valid(raw) {
		cErr.rawJSON = compactJSON(raw)
	}
	return cErr
}

func printBody(output Output, stdout io.Writer, raw []byte) {
	trimmed := strings.TrimSpace(string(raw))
	var line string
	switch {
	case output != OutputJSON && trimmed == "":
		line = "ok"
	case output != OutputJSON:
		line = indentJSON(raw)
	case trimmed == "":
		line = "{}"
	case json.Valid(raw):
		line = string(compactJSON(raw))
	default:
		encoded, _ := json.Marshal(map[string]string{"result": trimmed})
		line = string(encoded)
	}
	_, _ = fmt.Fprintln(stdout, line)
}

// problem is the subset of an RFC 9457 body (as huma writes it) the CLI shows.
type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Error  string `json:"error"`
	Errors []struct {
		Message  string `json:"message"`
		Location string `json:"location"`
	} `json:"errors"`
}

// extractErrorMessage picks detail, then title, then error. Field-level
// validation errors are appended so the user sees which input was rejected.
func extractErrorMessage(raw []byte) string {
	var p problem
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	msg := ""
	for _, candidate := range []string{p.Detail, p.Title, p.Error} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			msg = candidate
			break
		}
	}
	if msg == "" || len(p.Errors) == 0 {
		return msg
	}
	fields := make([]string, 0, len(p.Errors))
	for _, fe := range p.Errors {
		if fe.Location != "" {
			fields = append(fields, fe.Location+": "+fe.Message)
		} else {
			fields = append(fields, fe.Message)
		}
	}
	return msg + " (" + strings.Join(fields, "; ") + ")"
}

func compactJSON(raw []byte) []byte {
	var out bytes.Buffer
	if err := json.Compact(&out, raw); err != nil {
		return raw
	}
	return out.Bytes()
}

// indentJSON pretty-prints JSON bodies for text output and passes anything
// else through trimmed.
func indentJSON(raw []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, bytes.TrimSpace(raw), "", "  "); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return out.String()
}

func FormatWatchLine(output Output, event map[string]any) (string, error) {
	if output == OutputJSON {
		raw, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	parts := make([]string, 0, 4)
	for _, key := range []string{"type", "kitId", "designId", "pickId"} {
		if value, ok := event[key]; ok && fmt.Sprintf("%v", value) != "" {
			parts = append(parts, fmt.Sprintf("%s=%v", key, value))
		}
	}
	if len(parts) == 0 {
		return "(event)", nil
	}

	return strings.Join(parts, " "), nil
}

func printPrimer(output Output, stdout io.Writer) error {
	commandTemplates := map[string]string{
		"create_kit":         "gemtracker --output json kit create -n \"$NUMBER\" -d \"$DESIGNS\"",
		"list_kits":          "gemtracker --output json kit ls",
		"kit_summaries":      "gemtracker --output json kit summaries [--bucket complete|started|not_started]",
		"get_kit":            "gemtracker --output json kit get \"$KIT\"",
		"edit_kit":           "gemtracker --output json kit edit \"$KIT\" [--name ...] [--designs N]",
		"delete_kit":         "gemtracker --output json kit rm \"$KIT\"",
		"start_design":       "gemtracker --output json design start -k \"$KIT\" -d \"$DESIGN\" [--yes]",
		"advance_design":     "gemtracker --output json design advance -k \"$KIT\" -d \"$DESIGN\"",
		"uncomplete_design":  "gemtracker --output json design uncomplete -k \"$KIT\" -d \"$DESIGN\" --yes",
		"upload_photo":       "gemtracker --output json design photo set -k \"$KIT\" -d \"$DESIGN\" -f photo.jpg",
		"stats":              "gemtracker --output json stats",
		"pick_random":        "gemtracker --output json pick random",
		"pick_history":       "gemtracker --output json pick history [--limit N]",
		"watch_events":       "gemtracker --output json watch [-k \"$KIT\"]",
		"rebuild_projection": "gemtracker --output json admin rebuild",
	}

	rules := []string{
		"Prefer `--output json` for any command whose output will be parsed.",
		"Kits and designs are addressed by id; read ids from `kit ls` or `kit get`.",
		"At most one design is in progress across all kits.",
		"Starting a design while another kit holds the active one returns action needs_confirmation; repeat with --yes to switch.",
		"Uncompleting always needs confirmation; pass --yes to apply it.",
		"`watch` is long-running and must be explicitly stopped by the caller.",
	}

	if output == OutputJSON {
		payload := map[string]any{
			"name":              "gemtracker",
			"purpose":           "HTTP client for the diamond painting kit tracker.",
			"design_statuses":   []string{"not_started", "in_progress", "completed"},
			"buckets":           []string{"complete", "started", "not_started"},
			"global_flags":      []string{"--server-url", "--output"},
			"execution_rules":   rules,
			"command_templates": commandTemplates,
			"error_shape": map[string]any{
				"backend_problem_json": map[string]any{"title": "Conflict", "status": 409, "detail": "design must be in progress to complete it"},
				"cli_fallback_json":    map[string]any{"status": 502, "error": "gateway or CLI processing error"},
			},
		}
		raw, _ := json.Marshal(payload)
		_, _ = fmt.Fprintln(stdout, string(raw))
		return nil
	}

	lines := []string{"GEMTRACKER PRIMER", "", "RULES"}
	for i, rule := range rules {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, rule))
	}
	lines = append(lines, "", "DESIGN STATUSES: not_started | in_progress | completed", "", "COMMAND TEMPLATES")
	for _, key := range sortedKeys(commandTemplates) {
		lines = append(lines, strings.ToUpper(key)+": "+commandTemplates[key])
	}
	_, _ = fmt.Fprintln(stdout, strings.Join(lines, "\n"))
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
