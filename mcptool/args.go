package mcptool

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// argsMap extracts the arguments map from an MCP tool call request.
// Returns an empty map if arguments are nil or not a map.
func argsMap(request mcp.CallToolRequest) map[string]interface{} {
	if request.Params.Arguments != nil {
		if m, ok := request.Params.Arguments.(map[string]interface{}); ok {
			return m
		}
	}
	return map[string]interface{}{}
}

func stringParam(args map[string]interface{}, key string) (string, bool) {
	s, ok := args[key].(string)
	return s, ok
}

// boolParam returns def when key is missing or not a boolean.
func boolParam(args map[string]interface{}, key string, def bool) bool {
	b, ok := args[key].(bool)
	if !ok {
		return def
	}
	return b
}

// marshalToolResult marshals any value to JSON and returns it as an MCP tool result.
func marshalToolResult(data interface{}) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal result: " + err.Error())
	}
	return mcp.NewToolResultText(string(jsonData))
}
