// Package apidoc отдает OpenAPI описание сервиса и страницу Swagger UI.
package apidoc

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Пути документации. Все они публичны в policy.DefaultRules.
const (
	PathJSON    = "/v3/api-docs"
	PathYAML    = "/v3/api-docs/openapi.yaml"
	PathUI      = "/swagger-ui.html"
	PathUIIndex = "/swagger-ui/"
)

//go:embed openapi.yaml
var specYAML []byte

// Operation метод и шаблон пути из документа
type Operation struct {
	Method string
	Path   string
}

// Doc проверенный OpenAPI документ, подготовленный к отдаче в JSON и YAML
type Doc struct {
	spec     *openapi3.T
	jsonBody []byte
	yamlBody []byte
	uiBody   []byte
}

// Load разбирает встроенный документ и проверяет его.
// version подставляется в info.version, пустая строка оставляет значение из файла.
func Load(ctx context.Context, version string) (*Doc, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false

	spec, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI doc: %w", err)
	}

	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI doc: %w", err)
	}

	if version != "" {
		spec.Info.Version = version
	}

	jsonBody, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAPI doc as JSON: %w", err)
	}

	// YAML строится из JSON, чтобы обе формы совпадали
	var generic any
	if err := json.Unmarshal(jsonBody, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode OpenAPI JSON: %w", err)
	}
	yamlBody, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("failed to encode OpenAPI doc as YAML: %w", err)
	}

	var ui strings.Builder
	if err := uiTemplate.Execute(&ui, struct{ Title, SpecURL string }{spec.Info.Title, PathJSON}); err != nil {
		return nil, fmt.Errorf("failed to render swagger ui: %w", err)
	}

	return &Doc{
		spec:     spec,
		jsonBody: jsonBody,
		yamlBody: yamlBody,
		uiBody:   []byte(ui.String()),
	}, nil
}

// Spec возвращает разобранный документ
func (d *Doc) Spec() *openapi3.T {
	return d.spec
}

// Operations перечисляет все операции документа, отсортированные по пути и методу
func (d *Doc) Operations() []Operation {
	var ops []Operation
	for path, item := range d.spec.Paths.Map() {
		for method := range item.Operations() {
			ops = append(ops, Operation{Method: method, Path: path})
		}
	}

	slices.SortFunc(ops, func(a, b Operation) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.Method, b.Method)
	})
	return ops
}

// JSON обрабатывает GET /v3/api-docs
func (d *Doc) JSON(w http.ResponseWriter, r *http.Request) {
	write(w, "application/json", d.jsonBody)
}

// YAML обрабатывает GET /v3/api-docs/openapi.yaml
func (d *Doc) YAML(w http.ResponseWriter, r *http.Request) {
	write(w, "application/yaml", d.yamlBody)
}

// UI обрабатывает GET /swagger-ui.html и /swagger-ui/
func (d *Doc) UI(w http.ResponseWriter, r *http.Request) {
	write(w, "text/html; charset=utf-8", d.uiBody)
}

func write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

var uiTemplate = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({ url: "{{.SpecURL}}", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`))
