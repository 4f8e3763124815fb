package capability

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// Kind identifies which engine namespace a capability registers into.
type Kind string

const (
	// KindResource is a named, addressable piece of content, served at a
	// fixed URI or via a URI template with variables.
	KindResource Kind = "resource"

	// KindTool is a named, schema-described callable action.
	KindTool Kind = "tool"

	// KindPrompt is a named, argument-parameterized template producing
	// conversational message content.
	KindPrompt Kind = "prompt"
)

// ToolParam describes one parameter of a tool's input shape.
type ToolParam struct {
	Name        string
	Type        string // JSON schema type: string, number, boolean, object, array
	Description string
	Required    bool
	Default     any
	// Schema holds a detailed JSON schema for the parameter. When set it takes
	// precedence over Type.
	Schema map[string]any
}

// PromptArg describes one argument of a prompt. Arguments are string-valued;
// the registrar synthesizes a per-argument string schema from this spec.
type PromptArg struct {
	Name        string
	Description string
	Required    bool
}

// Definition is the declarative description attached to a handler method.
// Name is required for registration of any kind; a definition missing it is
// rejected at registration time, never at discovery time.
type Definition struct {
	Kind        Kind
	Name        string
	Description string

	// URI registers a resource at an exact URI. Mutually exclusive with
	// URITemplate: a definition is a template resource iff URITemplate is set.
	URI string

	// URITemplate accepts either a template string or a precompiled
	// mcp.ResourceTemplate. Any other type is a definition error, detected at
	// registration.
	URITemplate any

	// MIMEType applies to resources.
	MIMEType string

	// Params describes a tool's input shape. Empty means the tool takes no
	// parameters and no input schema is passed to the engine.
	Params []ToolParam

	// Args describes a prompt's arguments. Empty means a zero-argument prompt.
	Args []PromptArg
}

// IsTemplate reports whether the definition describes a template resource.
// The presence of URITemplate is the sole discriminant.
func (d Definition) IsTemplate() bool {
	return d.URITemplate != nil
}

// Handler signatures per kind. Discovered methods must match the signature of
// their kind to be registrable; these are the same shapes the engine invokes.
type (
	ToolHandler     = func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	ResourceHandler = func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error)
	PromptHandler   = func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
)
