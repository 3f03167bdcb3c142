// Package xrpl implements the websocket client used to talk to rippled.
// Each request opens one short-lived connection, sends one command, and
// waits for one reply. Commands and replies are opaque key-value documents
// with typed accessors, so callers extract only the fields they care about.
package xrpl

import (
	"encoding/json"
	"time"
)

// Command is one request to the node: a method name plus parameters.
type Command struct {
	Method string
	Params map[string]any
}

// NewCommand builds a command with no parameters.
func NewCommand(method string) Command {
	return Command{Method: method}
}

// WithParam returns a copy of the command with the parameter set.
func (c Command) WithParam(key string, value any) Command {
	params := make(map[string]any, len(c.Params)+1)
	for k, v := range c.Params {
		params[k] = v
	}
	params[key] = value
	return Command{Method: c.Method, Params: params}
}

// encode produces the wire form: {"id": ..., "command": ..., <params>}.
func (c Command) encode(id int64) map[string]any {
	msg := make(map[string]any, len(c.Params)+2)
	for k, v := range c.Params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = c.Method
	return msg
}

// Document is a generic JSON object with typed accessors.
type Document map[string]any

// Str returns the string at key, or "" if absent or not a string.
func (d Document) Str(key string) string {
	s, _ := d[key].(string)
	return s
}

// Float returns the number at key. JSON numbers decode as float64;
// numeric strings (rippled uses them for drop amounts) are accepted too.
func (d Document) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		var f float64
		if err := json.Unmarshal([]byte(v), &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Int returns the number at key truncated to an integer.
func (d Document) Int(key string) (int64, bool) {
	f, ok := d.Float(key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// Doc returns the nested object at key, or nil if absent.
func (d Document) Doc(key string) Document {
	child, _ := d[key].(map[string]any)
	return Document(child)
}

// List returns the array at key, or nil if absent.
func (d Document) List(key string) []any {
	list, _ := d[key].([]any)
	return list
}

// Reply is one response from the node.
type Reply struct {
	// ID echoes the request id.
	ID int64

	// Status is "success" or "error" as reported by the node.
	Status string

	// Result holds the response body on success.
	Result Document

	// ErrorCode and ErrorMessage are set when Status is "error".
	ErrorCode    string
	ErrorMessage string

	// Latency is the full round trip time for the request,
	// including connection setup.
	Latency time.Duration
}

// IsSuccess reports whether the node answered the command successfully.
func (r *Reply) IsSuccess() bool {
	return r.Status == "success"
}

// parseReply decodes a raw websocket message into a Reply.
func parseReply(raw []byte) (*Reply, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Reason: FailMalformedReply, Cause: err}
	}

	status := doc.Str("status")
	if status == "" {
		return nil, &Error{Reason: FailMalformedReply}
	}

	reply := &Reply{Status: status}
	if id, ok := doc.Int("id"); ok {
		reply.ID = id
	}
	if status == "success" {
		reply.Result = doc.Doc("result")
	} else {
		reply.ErrorCode = doc.Str("error")
		reply.ErrorMessage = doc.Str("error_message")
	}
	return reply, nil
}
