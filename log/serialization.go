package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LogMessageWire is the JSON line format of one log record.
type LogMessageWire struct {
	Timestamp time.Time     `json:"timestamp"`
	Attrs     []LogAttrWire `json:"attrs,omitempty"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	Source    string        `json:"source,omitempty"`
}

// LogAttrWire is one attribute of a LogMessageWire. Value holds the text
// form; Type names the slog kind it decodes back into.
type LogAttrWire struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

var kindNames = map[slog.Kind]string{
	slog.KindString:   "string",
	slog.KindInt64:    "int64",
	slog.KindUint64:   "uint64",
	slog.KindBool:     "bool",
	slog.KindFloat64:  "float64",
	slog.KindTime:     "time",
	slog.KindDuration: "duration",
}

func toLogAttrWire(attr slog.Attr) LogAttrWire {
	v := attr.Value.Resolve()
	if name, ok := kindNames[v.Kind()]; ok {
		return LogAttrWire{Key: attr.Key, Type: name, Value: scalarText(v)}
	}
	typ, text := anyText(v.Any())
	return LogAttrWire{Key: attr.Key, Type: typ, Value: text}
}

func scalarText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	default:
		return v.String()
	}
}

func anyText(v any) (typ, text string) {
	switch x := v.(type) {
	case nil:
		return "any", "<nil>"
	case error:
		return "error", x.Error()
	case []byte:
		return "string", string(x)
	}
	if data, err := json.Marshal(v); err == nil {
		return "json", string(data)
	}
	return "any", fmt.Sprintf("%v", v)
}

// toSlogAttr converts a wire attribute back to a typed slog.Attr. Values
// that fail to parse are kept as strings.
func toSlogAttr(w LogAttrWire) slog.Attr {
	switch w.Type {
	case "int64":
		if v, err := strconv.ParseInt(w.Value, 10, 64); err == nil {
			return slog.Int64(w.Key, v)
		}
	case "uint64":
		if v, err := strconv.ParseUint(w.Value, 10, 64); err == nil {
			return slog.Uint64(w.Key, v)
		}
	case "bool":
		if v, err := strconv.ParseBool(w.Value); err == nil {
			return slog.Bool(w.Key, v)
		}
	case "float64":
		if v, err := strconv.ParseFloat(w.Value, 64); err == nil {
			return slog.Float64(w.Key, v)
		}
	case "time":
		if v, err := time.Parse(time.RFC3339Nano, w.Value); err == nil {
			return slog.Time(w.Key, v)
		}
	case "duration":
		if v, err := time.ParseDuration(w.Value); err == nil {
			return slog.Duration(w.Key, v)
		}
	case "json":
		return slog.Any(w.Key, json.RawMessage(w.Value))
	}
	return slog.String(w.Key, w.Value)
}

// parseLevel accepts slog level names, case-insensitively, with optional
// offsets such as "WARN+2".
func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(s))
	return l, err
}
