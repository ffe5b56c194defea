package chat

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	dataPrefix  = "data:"
	eventPrefix = "event:"
)

// FrameParser turns framed lines into Events. A line that fails to parse is
// logged and dropped; it never stops the stream.
type FrameParser struct {
	logger *Logger
}

// NewFrameParser creates a parser logging dropped frames to logger. A nil
// logger uses the package default.
func NewFrameParser(logger *Logger) *FrameParser {
	if logger == nil {
		logger = GetLogger()
	}
	return &FrameParser{logger: logger}
}

// Payload extracts the JSON payload of a data line. It reports false for
// blank lines, "event:" metadata lines, other non-data lines and data lines
// with an empty payload.
func Payload(line string) (string, bool) {
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	if strings.HasPrefix(line, eventPrefix) {
		return "", false
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
	if data == "" {
		return "", false
	}
	return data, true
}

// Parse parses one framed line. ok is false when the line carries no payload
// or the payload is not a JSON object.
func (p *FrameParser) Parse(line string) (ev Event, ok bool) {
	data, ok := Payload(line)
	if !ok {
		return Event{}, false
	}

	if !gjson.Valid(data) {
		p.logger.Warn("dropping malformed frame", "frame", truncate(data, 120))
		return Event{}, false
	}
	obj := gjson.Parse(data)
	if !obj.IsObject() {
		p.logger.Warn("dropping non-object frame", "frame", truncate(data, 120))
		return Event{}, false
	}

	return decodeEvent(obj), true
}

// decodeEvent reads each signal field independently.
func decodeEvent(obj gjson.Result) Event {
	var ev Event

	if id := obj.Get("id"); id.Exists() && id.Type != gjson.Null {
		ev.ID = id.String()
	}
	ev.Role = stringField(obj, "role")

	ev.ThinkingToken = stringField(obj, "thinking")
	ev.ThinkingDone = obj.Get("thinking_done").Type == gjson.True

	if content := obj.Get("content"); content.Exists() {
		ev.HasContent = true
		ev.ContentToken = content.String()
	}

	if name := stringField(obj, "name"); name != "" {
		call := &ToolCall{Name: name}
		if args := obj.Get("arguments"); args.Exists() {
			call.Arguments = rawJSON(args)
		}
		ev.ToolCall = call
	}

	if result := obj.Get("result"); result.IsObject() {
		ev.ToolResult = &ToolResult{
			Success: result.Get("success").Bool(),
			Error:   result.Get("error").String(),
			Raw:     json.RawMessage(result.Raw),
		}
	}

	ev.FinishReason = stringField(obj, "finish_reason")
	ev.ErrorMessage = stringField(obj, "message")

	return ev
}

func stringField(obj gjson.Result, key string) string {
	v := obj.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return ""
	}
	return v.String()
}

// rawJSON keeps arguments as JSON. A string holding a JSON document is
// unwrapped, since some servers double-encode tool arguments.
func rawJSON(v gjson.Result) json.RawMessage {
	if v.Type == gjson.String && gjson.Valid(v.Str) {
		inner := gjson.Parse(v.Str)
		if inner.IsObject() || inner.IsArray() {
			return json.RawMessage(v.Str)
		}
	}
	return json.RawMessage(v.Raw)
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
