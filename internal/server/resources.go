package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"

	"umlizer/internal/logger"
)

const (
	guideURI     = "umlizer://usage-guidelines"
	configURI    = "umlizer://config"
	schemaPrefix = "umlizer://schemas/"

	markdownMIME = "text/markdown"
	yamlMIME     = "application/yaml"
	schemaMIME   = "application/schema+json"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         guideURI,
		Name:        "Usage Guidelines",
		Description: "How to use the umlizer MCP tools",
		MIMEType:    markdownMIME,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return contents(guideURI, markdownMIME, s.systemPrompt), nil
	})

	// Tool calls fill omitted arguments from this configuration, so clients
	// can read it to know what a bare call will do.
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         configURI,
		Name:        "Effective Configuration",
		Description: "Defaults applied to class_diagram and describe_model arguments",
		MIMEType:    yamlMIME,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		data, err := yaml.Marshal(s.cfg)
		if err != nil {
			return nil, err
		}
		return contents(configURI, yamlMIME, string(data)), nil
	})

	schemas := buildSchemaMap()
	s.mcpServer.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: schemaPrefix + "{tool_name}",
		Name:        "Tool Schema",
		Description: "JSON schema for the arguments of class_diagram or describe_model",
		MIMEType:    schemaMIME,
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := req.Params.URI
		schema, ok := schemas[strings.TrimPrefix(uri, schemaPrefix)]
		if !ok {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return contents(uri, schemaMIME, schema), nil
	})
}

func contents(uri, mime, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mime, Text: text}},
	}
}

// buildSchemaMap maps each tool name to the JSON schema inferred from its
// arguments struct.
func buildSchemaMap() map[string]string {
	m := make(map[string]string)
	addSchema[ClassDiagramArgs](m, "class_diagram")
	addSchema[DescribeModelArgs](m, "describe_model")
	return m
}

func addSchema[T any](m map[string]string, tool string) {
	schema, err := jsonschema.For[T](nil)
	if err == nil {
		var data []byte
		if data, err = json.MarshalIndent(schema, "", "  "); err == nil {
			m[tool] = string(data)
			return
		}
	}
	logger.ForComponent("mcp").Warn("tool schema unavailable", "tool", tool, "error", err)
}
