// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notegraph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notegraph/internal/linkgraph"
	"github.com/starford/notegraph/internal/mutator"
	"github.com/starford/notegraph/internal/notes"
)

const contractURI = "notegraph://document-format"

// Server wraps the MCP server with notegraph tools.
type Server struct {
	mcp *server.MCPServer
	svc *notes.Service
}

// New creates a new MCP server with all notegraph tools registered.
func New(svc *notes.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notegraph",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_collections",
		mcp.WithDescription("List collections (top-level folders) with their IDs."),
	), s.listCollections)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the documents of a collection with their IDs and names."),
		mcp.WithString("collection_id", mcp.Required(), mcp.Description("Collection ID from list_collections")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full Markdown content of a document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new Markdown document in a collection. "+
			"Read the format contract first via the get_document_contract tool or the "+
			contractURI+" resource."),
		mcp.WithString("collection_id", mcp.Required(), mcp.Description("Collection ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Document name; .md is appended when missing")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown content with [[wikilinks]]")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the notegraph document format contract."),
	), s.getDocumentContract)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the laid-out link graph of a collection: nodes with roles, "+
			"colors and positions, and edges."),
		mcp.WithString("collection_id", mcp.Required(), mcp.Description("Focal collection ID")),
		mcp.WithString("scope", mcp.Enum(string(linkgraph.ScopeLocal), string(linkgraph.ScopeGlobal)),
			mcp.Description("local: the collection only; global: plus documents one link away")),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("connect_documents",
		mcp.WithDescription("Add a \"Related: [[target]]\" link to the source document unless it already links to the target."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Document that receives the link")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Document being linked to")),
	), s.connectDocuments)

	s.mcp.AddTool(mcp.NewTool("disconnect_documents",
		mcp.WithDescription("Remove every link to the target from the source document."),
		mcp.WithString("source_id", mcp.Required(), mcp.Description("Document holding the links")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Document being unlinked")),
	), s.disconnectDocuments)

	s.mcp.AddTool(mcp.NewTool("rename_document",
		mcp.WithDescription("Rename a document and rewrite links to it in its collection."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("name", mcp.Required(), mcp.Description("New document name")),
	), s.renameDocument)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Document Format Contract",
			mcp.WithResourceDescription("Markdown document format and linking conventions."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cs, err := s.svc.Collections(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(cs)
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("collection_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docs, err := s.svc.ListDocuments(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = d.ID + "\t" + d.Name
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.Document(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collectionID, err := req.RequireString("collection_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.CreateDocument(ctx, collectionID, name, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", doc.Path, doc.ID)), nil
}

func (s *Server) getDocumentContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("collection_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	scope, err := linkgraph.ParseScope(req.GetString("scope", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	view, err := s.svc.Graph(ctx, id, scope)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	refs, err := s.svc.Backlinks(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, len(refs))
	for i, r := range refs {
		lines[i] = r.ID + "\t" + r.Name
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) connectDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.linkEdit(ctx, req, s.svc.Connect, "linked", "already linked")
}

func (s *Server) disconnectDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.linkEdit(ctx, req, s.svc.Disconnect, "unlinked", "no link found")
}

func (s *Server) linkEdit(ctx context.Context, req mcp.CallToolRequest,
	edit func(context.Context, string, string) (bool, error), done, noop string,
) (*mcp.CallToolResult, error) {
	source, err := req.RequireString("source_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := edit(ctx, source, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !changed {
		return mcp.NewToolResultText(noop), nil
	}
	return mcp.NewToolResultText(done), nil
}

func (s *Server) renameDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := s.svc.RenameDocument(ctx, id, name)
	var cascadeErr *mutator.CascadeError
	if err != nil && !errors.As(err, &cascadeErr) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, _ := jsonResult(report)
	if cascadeErr != nil {
		res.IsError = true
	}
	return res, nil
}
