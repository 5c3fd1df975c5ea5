package render

import (
	"regexp"
	"strings"
)

var methodColors = map[string]string{
	"GET":    "\033[34m",
	"POST":   "\033[32m",
	"PUT":    "\033[33m",
	"DELETE": "\033[31m",
	"PATCH":  "\033[36m",
	"HEAD":   "\033[35m",
}

// Method pads method to a fixed column and colours it by verb.
func Method(method string, color bool) string {
	m := strings.ToUpper(method)
	padded := PadRight(m, 7)
	if !color {
		return padded
	}
	c, ok := methodColors[m]
	if !ok {
		return padded
	}
	return c + padded + colorReset
}

var pathParam = regexp.MustCompile(`\{([^}]+)\}`)

// Path highlights {templated} segments.
func Path(path string, color bool) string {
	if !color {
		return path
	}
	return pathParam.ReplaceAllString(path, colorKey+"{$1}"+colorReset)
}

func PadRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
