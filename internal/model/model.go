package model

import "strings"

type ParamLocation string

type ParamType string

const (
	ParamInPath   ParamLocation = "path"
	ParamInQuery  ParamLocation = "query"
	ParamInHeader ParamLocation = "header"
	ParamInCookie ParamLocation = "cookie"
	// ParamInBody and ParamInForm only occur in Swagger 2 documents.
	ParamInBody ParamLocation = "body"
	ParamInForm ParamLocation = "formData"

	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
	TypeUnknown ParamType = "unknown"
)

// UntaggedTag is the bucket for operations that declare no tags.
const UntaggedTag = "Untagged"

// Methods lists the path-item keys recognized as operations, in display order.
var Methods = []string{"get", "post", "put", "delete", "patch", "options", "head"}

// IsMethod reports whether key names an operation inside a path item.
func IsMethod(key string) bool {
	for _, m := range Methods {
		if key == m {
			return true
		}
	}
	return false
}

// Param describes one operation parameter. Schema is the effective schema
// node: the inline schema or, for Swagger 2, one built from the legacy fields.
type Param struct {
	Name        string
	In          ParamLocation
	Required    bool
	Deprecated  bool
	Type        ParamType
	Format      string
	Description string
	Example     any
	Enum        []any
	Default     any
	Schema      any
}

type MediaType struct {
	Name    string
	Schema  any
	Example any
}

type RequestBody struct {
	Description string
	Required    bool
	Content     []MediaType
}

// JSONSchema returns the application/json schema, if any.
func (b *RequestBody) JSONSchema() any {
	if b == nil {
		return nil
	}
	return mediaSchema(b.Content)
}

type Response struct {
	Status      string
	Description string
	Content     []MediaType
}

func (r Response) JSONSchema() any {
	return mediaSchema(r.Content)
}

// JSONExample returns an explicit application/json example, if declared.
func (r Response) JSONExample() any {
	for _, m := range r.Content {
		if m.Name == "application/json" {
			return m.Example
		}
	}
	return nil
}

func mediaSchema(content []MediaType) any {
	for _, m := range content {
		if m.Name == "application/json" {
			return m.Schema
		}
	}
	return nil
}

// Endpoint is one (method, path) operation. Endpoints are built once per
// document load and never modified afterwards.
type Endpoint struct {
	ID          string
	Method      string
	Path        string
	Tags        []string
	Summary     string
	Description string
	OperationID string
	Deprecated  bool

	Parameters  []Param
	RequestBody *RequestBody
	Responses   []Response
	Security    []string
}

// EndpointID is the stable identity of a (method, path) pair.
func EndpointID(method, path string) string {
	return strings.ToUpper(method) + "-" + path
}

// ParamsIn returns the parameters declared at loc, in declaration order.
func (e *Endpoint) ParamsIn(loc ParamLocation) []Param {
	var out []Param
	for _, p := range e.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

// Response returns the response declared for status.
func (e *Endpoint) Response(status string) (Response, bool) {
	for _, r := range e.Responses {
		if r.Status == status {
			return r, true
		}
	}
	return Response{}, false
}

// HasBody reports whether a try-it request for e sends a body.
func (e *Endpoint) HasBody() bool {
	switch e.Method {
	case "POST", "PUT", "PATCH":
		return e.RequestBody != nil
	}
	return false
}

type SecurityScheme struct {
	Name         string
	Type         string
	Scheme       string
	BearerFormat string
	In           string
	ParamName    string
	Description  string
	TokenURL     string
}
