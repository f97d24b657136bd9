package apiv1

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The served OpenAPI document must stay valid and in sync with the routes
// RegisterHandlers wires up.
func TestOpenAPIDocumentIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../public/docs/v1/openapi.yml")
	require.NoError(t, err)

	require.NoError(t, doc.Validate(loader.Context))

	assert.Equal(t, "NeuraDesk API", doc.Info.Title)

	for _, path := range []string{"/ping", "/user/profile", "/user/quota", "/ai/completions"} {
		assert.NotNil(t, doc.Paths.Find(path), "path %s missing from OpenAPI document", path)
	}

	completions := doc.Paths.Find("/ai/completions")
	require.NotNil(t, completions)
	require.NotNil(t, completions.Post)
	for _, status := range []string{"200", "403", "429"} {
		assert.NotNil(t, completions.Post.Responses.Value(status), "POST /ai/completions must document %s", status)
	}
}
