package registrar

import (
	"beacon/internal/capability"

	"github.com/mark3labs/mcp-go/mcp"
)

// buildInputSchema converts a tool's parameter specs to the JSON schema shape
// the engine advertises to clients. A parameter with a detailed Schema uses it
// verbatim (description still wins when set separately); otherwise a basic
// type-based schema is emitted.
func buildInputSchema(params []capability.ToolParam) mcp.ToolInputSchema {
	properties := make(map[string]interface{})
	required := []string{}

	for _, param := range params {
		var propSchema map[string]interface{}

		if len(param.Schema) > 0 {
			propSchema = make(map[string]interface{})
			for key, value := range param.Schema {
				propSchema[key] = value
			}
			if param.Description != "" {
				propSchema["description"] = param.Description
			}
		} else {
			propSchema = map[string]interface{}{
				"type":        param.Type,
				"description": param.Description,
			}
		}

		if param.Default != nil {
			propSchema["default"] = param.Default
		}

		properties[param.Name] = propSchema

		if param.Required {
			required = append(required, param.Name)
		}
	}

	return mcp.ToolInputSchema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}
