package frappe

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// APIError is a non-2xx answer from Frappe.
type APIError struct {
	Method string
	Path   string
	Status int
	// ExcType is the short exception class, e.g. "DuplicateEntryError".
	ExcType string
	// Exception is the full exception line from the server.
	Exception string
	// ServerMessages holds the plain-text user messages.
	ServerMessages []string
	// Message is the top-level "message" field, if any.
	Message string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "frappe: %s %s: status %d", e.Method, e.Path, e.Status)
	if e.ExcType != "" {
		b.WriteString(" ")
		b.WriteString(e.ExcType)
	}
	if detail := e.Detail(); detail != "" {
		b.WriteString(": ")
		b.WriteString(detail)
	}
	return b.String()
}

// Detail returns the most useful human-readable message: the server messages
// joined, else the message field, else the text after the exception class.
func (e *APIError) Detail() string {
	if e == nil {
		return ""
	}
	if len(e.ServerMessages) > 0 {
		return strings.Join(e.ServerMessages, "; ")
	}
	if e.Message != "" {
		return e.Message
	}
	if _, rest, ok := strings.Cut(e.Exception, ": "); ok {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(e.Exception)
}

type errorBody struct {
	Message        any    `json:"message"`
	Exception      string `json:"exception"`
	ExcType        string `json:"exc_type"`
	ServerMessages string `json:"_server_messages"`
}

func decodeAPIError(method, path string, status int, raw []byte) *APIError {
	apiErr := &APIError{Method: method, Path: path, Status: status}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = StripHTML(string(raw))
		return apiErr
	}

	apiErr.Exception = StripHTML(body.Exception)
	apiErr.ExcType = strings.TrimSpace(body.ExcType)
	if apiErr.ExcType == "" && apiErr.Exception != "" {
		apiErr.ExcType = excTypeFromException(apiErr.Exception)
	}
	if message, ok := body.Message.(string); ok {
		apiErr.Message = StripHTML(message)
	}
	apiErr.ServerMessages = parseServerMessages(body.ServerMessages)
	return apiErr
}

// parseServerMessages decodes the doubly encoded _server_messages field: a
// JSON array whose items are JSON objects (or plain strings) encoded again as
// strings.
func parseServerMessages(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		if text := StripHTML(raw); text != "" {
			return []string{text}
		}
		return nil
	}

	var out []string
	for _, item := range items {
		var obj struct {
			Message string `json:"message"`
		}
		text := item
		if err := json.Unmarshal([]byte(item), &obj); err == nil && obj.Message != "" {
			text = obj.Message
		}
		if text = StripHTML(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// excTypeFromException turns "frappe.exceptions.MandatoryError: ..." into
// "MandatoryError".
func excTypeFromException(exception string) string {
	head, _, _ := strings.Cut(exception, ":")
	head = strings.TrimSpace(head)
	if idx := strings.LastIndex(head, "."); idx >= 0 {
		head = head[idx+1:]
	}
	if strings.ContainsAny(head, " \n") {
		return ""
	}
	return head
}

// StripHTML removes markup and decodes entities.
func StripHTML(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(raw)))
}
