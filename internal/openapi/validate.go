package openapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/erdncyz/swagger-viewer/internal/document"
)

// Validate checks a normalized document against the OpenAPI 3 rules
// implemented by kin-openapi. External references are not followed.
func Validate(ctx context.Context, doc *document.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	loader := &openapi3.Loader{Context: ctx}
	loader.IsExternalRefsAllowed = false

	t, err := loader.LoadFromData(data)
	if err != nil {
		return fmt.Errorf("loading document: %w", err)
	}
	if err := t.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return fmt.Errorf("validating document: %w", err)
	}
	return nil
}
