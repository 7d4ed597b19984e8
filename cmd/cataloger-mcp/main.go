// Command cataloger-mcp exposes the cataloger HTTP API as MCP tools over
// stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/cataloger/models"
	"github.com/use-agent/cataloger/sink"
)

func main() {
	apiURL := os.Getenv("CATALOGER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("CATALOGER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "CATALOGER_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"cataloger",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	harvestTool := mcp.NewTool("harvest_catalog",
		mcp.WithDescription("Load an infinite-scroll catalog page in a headless browser, scroll until no more products appear, and return every product as brand, model and price."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The catalog page URL"),
		),
		mcp.WithString("ready_selector",
			mcp.Description("CSS selector of the first product card (default: server configuration)"),
		),
		mcp.WithNumber("max_scrolls",
			mcp.Description("Maximum scroll iterations (default: server configuration)"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("'browser' (default, renders and scrolls), 'http' (static markup only) or 'auto' (http, then browser)"),
			mcp.Enum("browser", "http", "auto"),
		),
		mcp.WithString("sink",
			mcp.Description("Optionally persist the batch server-side: 'csv', 'json', 'sqlite', 'postgres', 'redis' or 'webhook'"),
		),
		mcp.WithString("destination",
			mcp.Description("Table, stream, file or URL for the sink"),
		),
	)
	s.AddTool(harvestTool, handleHarvest(apiURL, apiKey))

	extractTool := mcp.NewTool("extract_products",
		mcp.WithDescription("Extract products from catalog HTML that was already rendered and saved."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("The rendered catalog markup"),
		),
	)
	s.AddTool(extractTool, handleExtract(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleHarvest(apiURL, apiKey string) server.ToolHandlerFunc {
	// Scrolling a long catalog takes minutes.
	client := &http.Client{Timeout: 10 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body := models.HarvestBody{
			URL:           url,
			ReadySelector: request.GetString("ready_selector", ""),
			MaxScrolls:    request.GetInt("max_scrolls", 0),
			FetchMode:     request.GetString("fetch_mode", ""),
			Sink:          request.GetString("sink", ""),
			Destination:   request.GetString("destination", ""),
		}
		return call(ctx, client, apiURL+"/api/v1/harvest", apiKey, body)
	}
}

func handleExtract(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := request.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}
		return call(ctx, client, apiURL+"/api/v1/extract", apiKey, models.ExtractBody{HTML: html})
	}
}

// call POSTs payload to endpoint and renders the HarvestResponse as text.
func call(ctx context.Context, client *http.Client, endpoint, apiKey string, payload any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(httpReq)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
	}

	var hr models.HarvestResponse
	if err := json.Unmarshal(respBody, &hr); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
	}

	if !hr.Success {
		errMsg := "harvest failed"
		if hr.Error != nil {
			errMsg = fmt.Sprintf("[%s] %s", hr.Error.Code, hr.Error.Message)
		}
		return mcp.NewToolResultError(errMsg), nil
	}

	text, err := render(ctx, hr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render products: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

// render formats the batch as a markdown table followed by a summary.
func render(ctx context.Context, hr models.HarvestResponse) (string, error) {
	var buf bytes.Buffer
	if hr.FinalURL != "" {
		fmt.Fprintf(&buf, "Source: %s\n\n", hr.FinalURL)
	}
	if err := sink.NewStdout(&buf).Write(ctx, "markdown", hr.Products); err != nil {
		return "", err
	}

	var notes []string
	if hr.Scroll != nil {
		notes = append(notes, fmt.Sprintf("scrolls: %d (%s)", hr.Scroll.Iterations, hr.Scroll.Outcome))
	}
	for reason, n := range hr.Gaps {
		notes = append(notes, fmt.Sprintf("skipped %s: %d", reason, n))
	}
	if hr.Sink != "" {
		notes = append(notes, "written to "+hr.Sink)
	}
	if len(notes) > 0 {
		buf.WriteString("\n---\n")
		buf.WriteString(strings.Join(notes, "\n"))
	}
	return buf.String(), nil
}
