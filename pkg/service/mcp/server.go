package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/interfaces"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "newsdesk"
	serverVersion = "0.1.0"
)

type generateArticleParams struct {
	Topic string `json:"topic" jsonschema:"Subject of the news article to write"`
}

type listArticlesParams struct{}

type saveArticleParams struct {
	Article model.Article `json:"article" jsonschema:"Article to save, usually the output of generate_article"`
}

type deleteArticleParams struct {
	ID string `json:"id" jsonschema:"ID of the saved article to delete"`
}

// NewServer builds an MCP server exposing the article operations as tools
func NewServer(articles interfaces.ArticleUseCase) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_article",
		Description: "Write a news article about a topic using web search grounding. The article is not saved.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *generateArticleParams) (*mcp.CallToolResult, any, error) {
		article, err := articles.Generate(ctx, params.Topic)
		if err != nil {
			return toolError(ctx, "generate_article", err), nil, nil
		}
		return jsonResult(article)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_articles",
		Description: "List every saved news article",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *listArticlesParams) (*mcp.CallToolResult, any, error) {
		list, err := articles.List(ctx)
		if err != nil {
			return toolError(ctx, "list_articles", err), nil, nil
		}
		return jsonResult(list)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_article",
		Description: "Save a news article. Fails when an article with the same ID exists.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *saveArticleParams) (*mcp.CallToolResult, any, error) {
		if err := articles.Save(ctx, &params.Article); err != nil {
			return toolError(ctx, "save_article", err), nil, nil
		}
		return textResult("Saved article " + string(params.Article.ID)), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_article",
		Description: "Delete a saved news article by ID",
	}, func(ctx context.Context, req *mcp.CallToolRequest, params *deleteArticleParams) (*mcp.CallToolResult, any, error) {
		if err := articles.Delete(ctx, model.ArticleID(params.ID)); err != nil {
			return toolError(ctx, "delete_article", err), nil, nil
		}
		return textResult("Deleted article " + params.ID), nil, nil
	})

	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)
}

// ServeStdio runs server on stdin/stdout until ctx is canceled or the client leaves
func ServeStdio(ctx context.Context, server *mcp.Server) error {
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return goerr.Wrap(err, "MCP stdio server failed")
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to marshal tool result")
	}
	return textResult(string(raw)), nil, nil
}

// toolError reports err to the client as a tool failure carrying only its public
// message
func toolError(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	if model.KindOf(err) == model.KindInternal {
		logging.From(ctx).Error("MCP tool failed", "tool", tool, "error", err)
	}

	result := textResult(model.PublicMessage(err))
	result.IsError = true
	return result
}
