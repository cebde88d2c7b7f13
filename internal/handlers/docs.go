// docs.go serves the OpenAPI specification and Swagger UI.
//
// We write the OpenAPI 3.0 document by hand as YAML and embed it. At startup
// kin-openapi parses and validates it, so a broken document fails fast
// instead of shipping; the parsed form is what we serve as JSON.
//
// Go Pattern: Embedding static files. Go 1.16+ has `embed` which lets you
// include files directly in the binary.
package handlers

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPISpec []byte

// Docs holds the API document in both wire forms.
type Docs struct {
	yaml []byte
	json []byte
	doc  *openapi3.T
}

// LoadDocs parses and validates the embedded OpenAPI document.
func LoadDocs(ctx context.Context) (*Docs, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi.yaml: %w", err)
	}

	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode openapi document: %w", err)
	}
	d := &Docs{yaml: openAPISpec, json: js, doc: doc}
	log.Printf("📖 OpenAPI document %s loaded", d.version())
	return d, nil
}

// version returns the API version declared in the document.
func (d *Docs) version() string {
	if d.doc.Info == nil {
		return ""
	}
	return d.doc.Info.Version
}

// ServeYAML returns the raw OpenAPI YAML specification.
// GET /api/docs/openapi.yaml
func (d *Docs) ServeYAML(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", d.yaml)
}

// ServeJSON returns the OpenAPI document as JSON.
// GET /api/docs/openapi.json
func (d *Docs) ServeJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", d.json)
}

// ServeSwaggerUI returns an HTML page that loads Swagger UI from a CDN
// and points it at our OpenAPI spec.
// GET /api/docs
func (d *Docs) ServeSwaggerUI(c *gin.Context) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Sommaire API Documentation</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
  <style>
    body { margin: 0; background: #fafafa; }
    .swagger-ui .topbar { display: none; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: '/api/docs/openapi.json',
      dom_id: '#swagger-ui',
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: 'BaseLayout',
      deepLinking: true,
    });
  </script>
</body>
</html>`

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}
