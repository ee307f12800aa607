package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lostfound-api/internal/dto"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func requireMatchesSchema(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestGatewayContracts(t *testing.T) {
	app := setupGateway(t)
	ackSchema := compileSchema(t, "ack.schema.json")
	errorSchema := compileSchema(t, "error.schema.json")

	resp := doJSON(t, app, http.MethodPost, "/api/items", dto.ItemCreateRequest{
		Name: "Ana", Number: "555-0100", Description: "red bike", Photo: "data:image/png;base64,AA==",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requireMatchesSchema(t, ackSchema, resp)

	resp = doJSON(t, app, http.MethodGet, "/api/items", nil)
	requireMatchesSchema(t, compileSchema(t, "items.schema.json"), resp)

	resp = doJSON(t, app, http.MethodGet, "/api/items", nil)
	var items []dto.ItemResponse
	decodeResponse(t, resp, &items)
	id := items[0].ID

	resp = doJSON(t, app, http.MethodPost, "/api/items/"+id+"/like", nil)
	requireMatchesSchema(t, ackSchema, resp)

	resp = doJSON(t, app, http.MethodPost, "/api/items/"+id+"/comments", dto.CommentCreateRequest{Name: "Ben", Text: "mine!"})
	requireMatchesSchema(t, ackSchema, resp)

	resp = doJSON(t, app, http.MethodGet, "/api/items/"+id+"/comments", nil)
	requireMatchesSchema(t, compileSchema(t, "comments.schema.json"), resp)

	resp = doJSON(t, app, http.MethodPost, "/api/chat/messages", dto.ChatPostRequest{
		Name:    "Ben",
		Message: "where was it?",
		ReplyTo: &dto.ChatReply{Name: "Ana", Message: "found a bike", Timestamp: 1},
	})
	requireMatchesSchema(t, ackSchema, resp)

	resp = doJSON(t, app, http.MethodGet, "/api/chat/messages", nil)
	requireMatchesSchema(t, compileSchema(t, "chat_messages.schema.json"), resp)

	resp = doJSON(t, app, http.MethodGet, "/api/items/missing/comments", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	requireMatchesSchema(t, errorSchema, resp)
}
