package http

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	legacyrouter "github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var rawSpec []byte

var loadSpec = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
})

// GetSwagger returns the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	return loadSpec()
}

// requestValidator rejects requests that do not match the OpenAPI document.
// Routes the document does not describe pass through.
type requestValidator struct {
	router routers.Router
	server *Server
}

func newRequestValidator(s *Server) (*requestValidator, error) {
	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	router, err := legacyrouter.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}
	return &requestValidator{router: router, server: s}, nil
}

func (v *requestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := v.router.FindRoute(r)
		if err != nil {
			if errors.Is(err, routers.ErrPathNotFound) || errors.Is(err, routers.ErrMethodNotAllowed) {
				next.ServeHTTP(w, r)
				return
			}
			v.server.writeError(w, r, http.StatusBadRequest, err)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				// Multipart bodies are parsed, size-limited and checked by the handler.
				ExcludeRequestBody: strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/"),
				MultiError:         false,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.server.writeError(w, r, http.StatusBadRequest, validationMessage(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// validationMessage drops the schema dump kin-openapi appends to its errors.
func validationMessage(err error) error {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		msg := reqErr.Reason
		if reqErr.Parameter != nil {
			msg = fmt.Sprintf("parameter %q: %s", reqErr.Parameter.Name, msg)
		}
		var schemaErr *openapi3.SchemaError
		if errors.As(reqErr.Err, &schemaErr) {
			msg = strings.TrimSpace(msg + " " + schemaErr.Reason)
		}
		if msg == "" {
			msg = reqErr.Error()
		}
		return errors.New(msg)
	}
	return err
}
