// Package curl turns a pasted cURL command line into a request.
package curl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/erdncyz/swagger-viewer/internal/httpclient"
)

var (
	ErrEmpty = errors.New("empty curl command")
	ErrNoURL = errors.New("no URL found in curl command")
)

var continuations = strings.NewReplacer("\\\r\n", " ", "\\\n", " ")

// Parse tokenizes command like a POSIX shell and reads the subset of curl
// options that shape a request. Unknown options are ignored; the method
// defaults to POST when a body is given and GET otherwise.
func Parse(command string) (httpclient.RequestSpec, error) {
	command = strings.TrimSpace(continuations.Replace(command))
	if command == "" {
		return httpclient.RequestSpec{}, ErrEmpty
	}
	words, err := shellquote.Split(command)
	if err != nil {
		return httpclient.RequestSpec{}, fmt.Errorf("parse curl command: %w", err)
	}
	if len(words) > 0 && words[0] == "curl" {
		words = words[1:]
	}

	spec := httpclient.RequestSpec{Headers: map[string]string{}}
	var data []string
	next := func(i *int) (string, bool) {
		if *i+1 >= len(words) {
			return "", false
		}
		*i++
		return words[*i], true
	}

	for i := 0; i < len(words); i++ {
		w := words[i]
		name, inline, hasInline := w, "", false
		if strings.HasPrefix(w, "--") {
			name, inline, hasInline = strings.Cut(w, "=")
		}
		arg := func() (string, bool) {
			if hasInline {
				return inline, true
			}
			return next(&i)
		}

		switch name {
		case "-X", "--request":
			if v, ok := arg(); ok {
				spec.Method = strings.ToUpper(v)
			}
		case "-H", "--header":
			if v, ok := arg(); ok {
				k, val, found := strings.Cut(v, ":")
				if found && strings.TrimSpace(k) != "" {
					spec.Headers[strings.TrimSpace(k)] = strings.TrimSpace(val)
				}
			}
		case "-d", "--data", "--data-raw", "--data-binary", "--data-ascii":
			if v, ok := arg(); ok {
				data = append(data, v)
			}
		case "-u", "--user":
			if v, ok := arg(); ok {
				spec.Headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(v))
			}
		case "-A", "--user-agent":
			if v, ok := arg(); ok {
				spec.Headers["User-Agent"] = v
			}
		case "--url":
			if v, ok := arg(); ok {
				spec.URL = v
			}
		case "-I", "--head":
			spec.Method = "HEAD"
		default:
			switch {
			case strings.HasPrefix(w, "-X") && len(w) > 2:
				spec.Method = strings.ToUpper(w[2:])
			case spec.URL == "" && isURL(w):
				spec.URL = w
			}
		}
	}

	if spec.URL == "" {
		return httpclient.RequestSpec{}, ErrNoURL
	}
	if len(data) > 0 {
		spec.Body = []byte(strings.Join(data, "&"))
	}
	if spec.Method == "" {
		spec.Method = "GET"
		if spec.Body != nil {
			spec.Method = "POST"
		}
	}
	return spec, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// IsLocal reports whether target points at this machine.
func IsLocal(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ViaRelay rewrites a non-local request to go through relay, a prefix that
// takes the escaped target URL (e.g. "http://localhost:8080/api/proxy?url=").
// Host headers are dropped since the relay sets its own. Local targets and an
// empty relay leave spec unchanged.
func ViaRelay(spec httpclient.RequestSpec, relay string) httpclient.RequestSpec {
	if relay == "" || IsLocal(spec.URL) {
		return spec
	}
	headers := make(map[string]string, len(spec.Headers))
	for k, v := range spec.Headers {
		if !strings.EqualFold(k, "host") {
			headers[k] = v
		}
	}
	spec.Headers = headers
	spec.URL = relay + url.QueryEscape(spec.URL)
	return spec
}
