package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
)

// Speaker is what the tools drive.
type Speaker interface {
	SynthesizeAndPlay(ctx context.Context, text string) (string, error)
	ListCatalogReport(ctx context.Context) (string, error)
	SelectVoice(ctx context.Context, identifier string) (string, error)
	StatusReport() string
}

type SpeakParams struct {
	Text string `json:"text" jsonschema:"The text to speak aloud"`
}

type SelectVoiceParams struct {
	Voice string `json:"voice" jsonschema:"Voice number from list_voices, a full voice key, or part of a voice name"`
}

type NoParams struct{}

// New builds an MCP server exposing speaker as tools. Failures are
// reported as error results so the session survives them.
func New(speaker Speaker, version string) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{Name: "pipernest", Version: version}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "speak",
		Description: "Speak the provided text out loud with the local piper voice",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SpeakParams) (*mcp.CallToolResult, any, error) {
		msg, err := speaker.SynthesizeAndPlay(ctx, in.Text)
		return result("speak", msg, err), nil, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_voices",
		Description: "List the voices available for the configured locale, best quality first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
		report, err := speaker.ListCatalogReport(ctx)
		return result("list_voices", report, err), nil, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "select_voice",
		Description: "Switch to another voice, downloading it if needed",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SelectVoiceParams) (*mcp.CallToolResult, any, error) {
		msg, err := speaker.SelectVoice(ctx, in.Voice)
		return result("select_voice", msg, err), nil, nil
	})

	mcp.AddTool(s, &mcp.Tool{
		Name:        "status",
		Description: "Show the installed piper binary and the selected voice",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ NoParams) (*mcp.CallToolResult, any, error) {
		return result("status", speaker.StatusReport(), nil), nil, nil
	})

	return s
}

// Run serves on stdin/stdout until ctx is cancelled or the client leaves.
func Run(ctx context.Context, speaker Speaker, version string) error {
	logrus.Info("Serving MCP on stdio")
	return New(speaker, version).Run(ctx, &mcp.StdioTransport{})
}

func result(tool, text string, err error) *mcp.CallToolResult {
	if err != nil {
		logrus.WithError(err).WithField("tool", tool).Warn("Tool call failed")
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
