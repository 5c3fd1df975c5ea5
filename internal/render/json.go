package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/erdncyz/swagger-viewer/internal/document"
)

// ansi color codes
const (
	colorReset   = "\033[0m"
	colorKey     = "\033[36m" // cyan for keys
	colorString  = "\033[32m" // green for strings
	colorNumber  = "\033[33m" // yellow for numbers
	colorBool    = "\033[35m" // magenta for booleans
	colorNull    = "\033[90m" // gray for null
	colorBracket = "\033[37m" // white for brackets
)

// JSON pretty-prints v with two-space indentation. Plain maps have their keys
// sorted; *document.Object keeps its own order. With color set, tokens are
// wrapped in ANSI escapes.
func JSON(v any, color bool) string {
	p := printer{color: color}
	p.value(v, 0)
	return p.sb.String()
}

// Body formats a response body: JSON content is pretty-printed, anything
// else is returned as is.
func Body(contentType, body string, color bool) string {
	if strings.Contains(strings.ToLower(contentType), "json") {
		var v any
		if err := json.Unmarshal([]byte(body), &v); err == nil {
			return JSON(v, color)
		}
	}
	return body
}

type printer struct {
	sb    strings.Builder
	color bool
}

func (p *printer) paint(c, s string) {
	if p.color {
		p.sb.WriteString(c + s + colorReset)
		return
	}
	p.sb.WriteString(s)
}

func (p *printer) value(v any, indent int) {
	prefix := strings.Repeat("  ", indent)

	switch val := v.(type) {
	case nil:
		p.paint(colorNull, "null")
	case bool:
		p.paint(colorBool, strconv.FormatBool(val))
	case float64:
		if val == float64(int64(val)) {
			p.paint(colorNumber, fmt.Sprintf("%.0f", val))
		} else {
			p.paint(colorNumber, strconv.FormatFloat(val, 'g', -1, 64))
		}
	case int, int64, uint64, json.Number:
		p.paint(colorNumber, fmt.Sprint(val))
	case string:
		p.paint(colorString, quote(val))
	case []any:
		if len(val) == 0 {
			p.paint(colorBracket, "[]")
			return
		}
		p.paint(colorBracket, "[")
		p.sb.WriteString("\n")
		for i, item := range val {
			p.sb.WriteString(prefix + "  ")
			p.value(item, indent+1)
			if i < len(val)-1 {
				p.sb.WriteString(",")
			}
			p.sb.WriteString("\n")
		}
		p.sb.WriteString(prefix)
		p.paint(colorBracket, "]")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		p.object(keys, func(k string) any { return val[k] }, indent)
	case *document.Object:
		p.object(val.Keys(), func(k string) any {
			v, _ := val.Get(k)
			return v
		}, indent)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			p.sb.WriteString(fmt.Sprintf("%v", v))
			return
		}
		p.sb.Write(b)
	}
}

func (p *printer) object(keys []string, get func(string) any, indent int) {
	if len(keys) == 0 {
		p.paint(colorBracket, "{}")
		return
	}
	prefix := strings.Repeat("  ", indent)
	p.paint(colorBracket, "{")
	p.sb.WriteString("\n")
	for i, k := range keys {
		p.sb.WriteString(prefix + "  ")
		p.paint(colorKey, quote(k))
		p.sb.WriteString(": ")
		p.value(get(k), indent+1)
		if i < len(keys)-1 {
			p.sb.WriteString(",")
		}
		p.sb.WriteString("\n")
	}
	p.sb.WriteString(prefix)
	p.paint(colorBracket, "}")
}

func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return strconv.Quote(s)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
