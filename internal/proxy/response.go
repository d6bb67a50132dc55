package proxy

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Response is the driver's reply to a forwarded command.
type Response struct {
	StatusCode int
	Body       []byte
}

// JSON returns the body as raw JSON, or nil when it is not valid JSON.
func (r *Response) JSON() json.RawMessage {
	if r == nil || !gjson.ValidBytes(r.Body) {
		return nil
	}
	return json.RawMessage(r.Body)
}

// SessionID extracts the session id from either the legacy top-level field
// or the W3C value object.
func (r *Response) SessionID() string {
	if r == nil {
		return ""
	}
	if id := gjson.GetBytes(r.Body, "sessionId"); id.Exists() && id.String() != "" {
		return id.String()
	}
	return gjson.GetBytes(r.Body, "value.sessionId").String()
}

// Value looks up a gjson path in the body.
func (r *Response) Value(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// StatusError is returned for non-2xx replies.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := gjson.GetBytes(e.Body, "value.message").String()
	if msg == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, msg)
}
