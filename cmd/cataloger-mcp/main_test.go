package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/cataloger/models"
)

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestHandleHarvest(t *testing.T) {
	var got models.HarvestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/harvest", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(models.HarvestResponse{
			Success:  true,
			FinalURL: "https://shop.example/catalog",
			Products: models.ExtractionBatch{{Brand: "AMD", Model: "Ryzen 5 5600X", Price: "32990"}},
			Count:    1,
			Scroll:   &models.ScrollInfo{Iterations: 4, Outcome: "settled"},
		})
	}))
	defer srv.Close()

	res, err := handleHarvest(srv.URL, "secret")(context.Background(), toolRequest(map[string]any{
		"url":         "https://shop.example/catalog",
		"max_scrolls": float64(10),
		"fetch_mode":  "browser",
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	assert.Equal(t, "https://shop.example/catalog", got.URL)
	assert.Equal(t, 10, got.MaxScrolls)
	assert.Equal(t, "browser", got.FetchMode)

	text := resultText(t, res)
	assert.Contains(t, text, "Ryzen 5 5600X")
	assert.Contains(t, text, "32990")
	assert.Contains(t, text, "scrolls: 4 (settled)")
}

func TestHandleHarvest_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		_ = json.NewEncoder(w).Encode(models.HarvestResponse{
			Error: &models.ErrorDetail{Code: models.ErrCodeReadyTimeout, Message: "no products"},
		})
	}))
	defer srv.Close()

	res, err := handleHarvest(srv.URL, "secret")(context.Background(), toolRequest(map[string]any{
		"url": "https://shop.example/catalog",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "[READY_TIMEOUT] no products")
}

func TestHandleHarvest_MissingURL(t *testing.T) {
	res, err := handleHarvest("http://127.0.0.1:1", "secret")(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
