package registrar

import (
	"context"
	"fmt"
	"sync"

	"beacon/internal/capability"
	"beacon/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registrar converts discovered definitions into the shapes the protocol
// engine expects and registers them. It owns no engine lifecycle: the single
// shared *server.MCPServer is constructed at bootstrap and passed in.
//
// Every Register* call is best-effort. A malformed definition is logged and
// skipped; nothing is raised to the caller, and earlier registrations stay in
// place. Each attempt is recorded in the Report.
type Registrar struct {
	engine *server.MCPServer
	report *Report

	tools     *nameTracker
	prompts   *nameTracker
	resources *nameTracker
}

// New creates a registrar writing into the given engine.
func New(engine *server.MCPServer) *Registrar {
	return &Registrar{
		engine:    engine,
		report:    &Report{},
		tools:     newNameTracker(),
		prompts:   newNameTracker(),
		resources: newNameTracker(),
	}
}

// Report returns the accumulated registration outcomes.
func (r *Registrar) Report() *Report {
	return r.report
}

// RegisteredNames returns the names currently registered for a kind.
func (r *Registrar) RegisteredNames(kind capability.Kind) []string {
	switch kind {
	case capability.KindTool:
		return r.tools.names()
	case capability.KindPrompt:
		return r.prompts.names()
	case capability.KindResource:
		return r.resources.names()
	default:
		return nil
	}
}

// RegisterResource registers a discovered resource definition. A definition
// carrying a URITemplate registers as a template resource; otherwise the
// handler is registered against the exact URI. Metadata defaults to empty.
func (r *Registrar) RegisterResource(item capability.DiscoveredItem) {
	def := item.Definition
	if def.Name == "" {
		r.skip(capability.KindResource, def.Name, "resource definition has no name")
		return
	}

	handler, ok := item.Handler.(capability.ResourceHandler)
	if !ok {
		r.skip(capability.KindResource, def.Name,
			fmt.Sprintf("handler for resource %q has signature %T, not a resource handler", def.Name, item.Handler))
		return
	}

	if def.IsTemplate() {
		tmpl, err := resolveTemplate(def)
		if err != nil {
			r.skip(capability.KindResource, def.Name, err.Error())
			return
		}
		r.track(r.resources, capability.KindResource, def.Name)
		r.engine.AddResourceTemplate(tmpl, server.ResourceTemplateHandlerFunc(handler))
		logging.Debug("Registrar", "Registered template resource: %s", def.Name)
		return
	}

	opts := []mcp.ResourceOption{}
	if def.Description != "" {
		opts = append(opts, mcp.WithResourceDescription(def.Description))
	}
	if def.MIMEType != "" {
		opts = append(opts, mcp.WithMIMEType(def.MIMEType))
	}

	r.track(r.resources, capability.KindResource, def.Name)
	r.engine.AddResource(mcp.NewResource(def.URI, def.Name, opts...), server.ResourceHandlerFunc(handler))
	logging.Debug("Registrar", "Registered resource: %s (%s)", def.Name, def.URI)
}

// resolveTemplate accepts a template string or a precompiled
// mcp.ResourceTemplate. Anything else is a definition error.
func resolveTemplate(def capability.Definition) (mcp.ResourceTemplate, error) {
	switch v := def.URITemplate.(type) {
	case string:
		opts := []mcp.ResourceTemplateOption{}
		if def.Description != "" {
			opts = append(opts, mcp.WithTemplateDescription(def.Description))
		}
		if def.MIMEType != "" {
			opts = append(opts, mcp.WithTemplateMIMEType(def.MIMEType))
		}
		return mcp.NewResourceTemplate(v, def.Name, opts...), nil
	case mcp.ResourceTemplate:
		return v, nil
	case *mcp.ResourceTemplate:
		return *v, nil
	default:
		return mcp.ResourceTemplate{}, fmt.Errorf(
			"resource %q has invalid uriTemplate type %T (expected string or mcp.ResourceTemplate)", def.Name, v)
	}
}

// RegisterTool registers a discovered tool definition. Optional fields are
// never passed as empty placeholders: the description option is only applied
// when a description exists, and an input schema is only attached when the
// parameter shape is non-empty.
func (r *Registrar) RegisterTool(item capability.DiscoveredItem) {
	def := item.Definition
	if def.Name == "" {
		r.skip(capability.KindTool, def.Name, "tool definition has no name")
		return
	}

	handler, ok := item.Handler.(capability.ToolHandler)
	if !ok {
		r.skip(capability.KindTool, def.Name,
			fmt.Sprintf("handler for tool %q has signature %T, not a tool handler", def.Name, item.Handler))
		return
	}

	opts := []mcp.ToolOption{}
	if def.Description != "" {
		opts = append(opts, mcp.WithDescription(def.Description))
	}

	tool := mcp.NewTool(def.Name, opts...)
	if len(def.Params) > 0 {
		tool.InputSchema = buildInputSchema(def.Params)
	}

	r.track(r.tools, capability.KindTool, def.Name)
	r.engine.AddTool(tool, server.ToolHandlerFunc(handler))
	logging.Debug("Registrar", "Registered tool: %s", def.Name)
}

// RegisterPrompt registers a discovered prompt definition. Arguments without a
// name are dropped with a warning; when all arguments are dropped the prompt
// registers as zero-argument. Registration always succeeds for a validly-named
// prompt, degrading rather than failing.
func (r *Registrar) RegisterPrompt(item capability.DiscoveredItem) {
	def := item.Definition
	if def.Name == "" {
		r.skip(capability.KindPrompt, def.Name, "prompt definition has no name")
		return
	}

	handler, ok := item.Handler.(capability.PromptHandler)
	if !ok {
		r.skip(capability.KindPrompt, def.Name,
			fmt.Sprintf("handler for prompt %q has signature %T, not a prompt handler", def.Name, item.Handler))
		return
	}

	opts := []mcp.PromptOption{}
	if def.Description != "" {
		opts = append(opts, mcp.WithPromptDescription(def.Description))
	}

	var required []string
	usable := 0
	for _, arg := range def.Args {
		if arg.Name == "" {
			logging.Warn("Registrar", "Prompt %q has an argument without a name, dropping it", def.Name)
			continue
		}
		usable++
		argOpts := []mcp.ArgumentOption{}
		if arg.Description != "" {
			argOpts = append(argOpts, mcp.ArgumentDescription(arg.Description))
		}
		if arg.Required {
			argOpts = append(argOpts, mcp.RequiredArgument())
			required = append(required, arg.Name)
		}
		opts = append(opts, mcp.WithArgument(arg.Name, argOpts...))
	}
	if len(def.Args) > 0 && usable == 0 {
		logging.Warn("Registrar", "Prompt %q declared %d arguments but none were usable, registering as zero-argument",
			def.Name, len(def.Args))
	}

	r.track(r.prompts, capability.KindPrompt, def.Name)
	r.engine.AddPrompt(mcp.NewPrompt(def.Name, opts...), server.PromptHandlerFunc(requirePromptArgs(required, handler)))
	logging.Debug("Registrar", "Registered prompt: %s (%d arguments)", def.Name, usable)
}

// requirePromptArgs wraps a prompt handler with required-argument validation
// synthesized from the definition, so calls missing a required argument fail
// before reaching the handler.
func requirePromptArgs(required []string, handler capability.PromptHandler) capability.PromptHandler {
	if len(required) == 0 {
		return handler
	}
	return func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		for _, name := range required {
			if _, ok := req.Params.Arguments[name]; !ok {
				return nil, fmt.Errorf("missing required argument %q", name)
			}
		}
		return handler(ctx, req)
	}
}

func (r *Registrar) skip(kind capability.Kind, name, reason string) {
	logging.Warn("Registrar", "Skipping %s registration: %s", kind, reason)
	r.report.add(Outcome{Kind: kind, Name: name, Status: StatusSkipped, Reason: reason})
}

// track records a successful registration. Within a kind the engine keeps one
// handler per name, so a repeated name means the newest registration wins;
// the replacement is detectable in the report.
func (r *Registrar) track(tracker *nameTracker, kind capability.Kind, name string) {
	if tracker.add(name) {
		r.report.add(Outcome{Kind: kind, Name: name, Status: StatusRegistered})
		return
	}
	logging.Warn("Registrar", "Duplicate %s name %q, last registration wins", kind, name)
	r.report.add(Outcome{Kind: kind, Name: name, Status: StatusReplaced, Reason: "duplicate name within kind"})
}

// nameTracker tracks which names are registered per kind.
type nameTracker struct {
	mu    sync.RWMutex
	items map[string]bool
}

func newNameTracker() *nameTracker {
	return &nameTracker{items: make(map[string]bool)}
}

// add records a name and reports whether it was new.
func (t *nameTracker) add(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.items[name] {
		return false
	}
	t.items[name] = true
	return true
}

func (t *nameTracker) names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.items))
	for name := range t.items {
		names = append(names, name)
	}
	return names
}
