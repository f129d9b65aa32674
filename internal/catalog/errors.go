package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const maxSnippet = 200

// HTTPError reports a non-2xx catalog response. The body is reduced to a
// short single-line snippet so credentials echoed back by the server do not
// end up in logs.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Snippet    string
}

func (e *HTTPError) Error() string {
	parts := []string{
		fmt.Sprintf("catalog api error: op=%s status=%s", e.Op, strings.TrimSpace(e.Status)),
	}
	if e.Snippet != "" {
		parts = append(parts, "body="+e.Snippet)
	}
	return strings.Join(parts, " ")
}

// WriteError reports an edit the catalog answered with a failure envelope
// ({"status": 0, "status_verbose": "..."}) despite a 2xx status.
type WriteError struct {
	Op      string
	Barcode string
	Reason  string
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("catalog rejected %s for %s: %s", e.Op, e.Barcode, e.Reason)
}

func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}
	h.Snippet = snippet(body)
	return h
}

func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > maxSnippet {
		n := maxSnippet
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n] + "..."
	}
	return s
}

type writeEnvelope struct {
	Status        *int   `json:"status"`
	StatusVerbose string `json:"status_verbose"`
}

func checkWrite(op, barcode string, body []byte) error {
	var env writeEnvelope
	if json.Unmarshal(body, &env) != nil || env.Status == nil {
		return nil
	}
	if *env.Status == 1 {
		return nil
	}
	return &WriteError{Op: op, Barcode: barcode, Reason: env.StatusVerbose}
}
