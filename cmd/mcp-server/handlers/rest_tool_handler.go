package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
)

// RestToolHandler exposes the MCP tools via REST at /api/tools/{name}.
type RestToolHandler struct {
	tools *Toolset
}

// NewRestToolHandler creates a new REST tool handler
func NewRestToolHandler(tools *Toolset) *RestToolHandler {
	return &RestToolHandler{tools: tools}
}

// HandleToolRequest executes one tool with the JSON body as its arguments.
func (h *RestToolHandler) HandleToolRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := chi.URLParam(r, "name")
	tool, ok := h.tools.Lookup(name)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", name), http.StatusNotFound)
		return
	}

	arguments := map[string]any{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&arguments); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var call mcp.CallToolRequest
	call.Params.Name = name
	call.Params.Arguments = arguments

	result, err := tool.Handler(r.Context(), call)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	text := resultText(result)
	if result.IsError {
		http.Error(w, text, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	// Tools return JSON documents or short confirmations as text.
	if json.Valid([]byte(text)) {
		_, _ = w.Write([]byte(text))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"result": text})
}

func resultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			return tc.Text
		case *mcp.TextContent:
			return tc.Text
		}
	}
	return ""
}
