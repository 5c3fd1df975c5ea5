package render

import (
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Status classes used to colour response codes.
const (
	ClassOK       = "s200"
	ClassClient   = "s400"
	ClassNotFound = "s404"
	ClassServer   = "s500"
)

// StatusClass buckets an HTTP status code: 2xx and 3xx are OK, 404 has its
// own class, other 4xx are client errors and everything else (including 0
// and "default") is a server error.
func StatusClass(code string) string {
	c, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return ClassServer
	}
	switch {
	case c >= 200 && c < 400:
		return ClassOK
	case c == 404:
		return ClassNotFound
	case c >= 400 && c < 500:
		return ClassClient
	}
	return ClassServer
}

var statusColors = map[string]string{
	ClassOK:       "\033[32m",
	ClassClient:   "\033[33m",
	ClassNotFound: "\033[35m",
	ClassServer:   "\033[31m",
}

// Status paints text in the colour of code's class.
func Status(code, text string, color bool) string {
	if !color {
		return text
	}
	return statusColors[StatusClass(code)] + text + colorReset
}

var strict = bluemonday.StrictPolicy()

// PlainText strips markup from a description and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(out), " ")
}
