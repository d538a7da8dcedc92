// Command toolserver hosts the Scrubber as three MCP tools
// (scrub_prompt, scrub_log_as_prompt, scrub_log_as_file) over a
// stdio transport. It is spawned and owned by pkg/toolserver.Channel
// as a long-running child process.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/scrubgate/pkg/patterns"
	"github.com/rhuss/scrubgate/pkg/scrubber"
	"github.com/rhuss/scrubgate/pkg/tokenizer"
)

type scrubInput struct {
	Text      string   `json:"text" jsonschema_description:"text to scrub"`
	ItemTypes []string `json:"item_types,omitempty" jsonschema_description:"closed-vocabulary item types to scrub for"`
}

type fileInput struct {
	Text string `json:"text" jsonschema_description:"file contents to scrub, line by line"`
}

func main() {
	server := mcp.NewServer(&mcp.Implementation{Name: "scrubgate-toolserver", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "scrub_prompt",
		Description: "Scrubs sensitive spans from a prompt using the given item types",
	}, handleScrubPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "scrub_log_as_prompt",
		Description: "Scrubs a log excerpt using the given item types, defaulting to the log item-type vocabulary",
	}, handleScrubLogAsPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "scrub_log_as_file",
		Description: "Scrubs an entire file's contents line by line against the merged vocabulary",
	}, handleScrubLogAsFile)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("toolserver: %v", err)
	}
}

func handleScrubPrompt(_ context.Context, _ *mcp.CallToolRequest, input scrubInput) (*mcp.CallToolResult, struct{}, error) {
	itemTypes := input.ItemTypes
	if itemTypes == nil {
		itemTypes = patterns.PromptItemTypes
	}
	res := scrubber.Scrub(input.Text, itemTypes, tokenizer.New())
	return resultOf(res)
}

func handleScrubLogAsPrompt(_ context.Context, _ *mcp.CallToolRequest, input scrubInput) (*mcp.CallToolResult, struct{}, error) {
	itemTypes := input.ItemTypes
	if itemTypes == nil {
		itemTypes = patterns.LogItemTypes
	}
	res := scrubber.Scrub(input.Text, itemTypes, tokenizer.New())
	return resultOf(res)
}

func handleScrubLogAsFile(_ context.Context, _ *mcp.CallToolRequest, input fileInput) (*mcp.CallToolResult, struct{}, error) {
	res := scrubber.ScrubFile(input.Text, tokenizer.New())
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, struct{}{}, fmt.Errorf("marshal file scrub result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}}}, struct{}{}, nil
}

func resultOf(res scrubber.Result) (*mcp.CallToolResult, struct{}, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, struct{}{}, fmt.Errorf("marshal scrub result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(payload)}}}, struct{}{}, nil
}
