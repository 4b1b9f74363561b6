package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/isdmx/coderunner/sandbox"
)

// Status values of a rendered execution
const (
	StatusSuccess = "success"
	StatusTimeout = "timeout"
	StatusFailure = "failure"
	StatusInfo    = "info"
)

// Embed colors per status
const (
	ColorSuccess = 0x2ECC71
	ColorTimeout = 0xE67E22
	ColorFailure = 0xE74C3C
	ColorInfo    = 0x3498DB
)

// Field is one titled section of a reply
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Reply is a chat response ready to be posted as a rich embed or as text
type Reply struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Status      string  `json:"status"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
}

// String renders the reply as markdown text.
func (r Reply) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", r.Title)
	if r.Description != "" {
		fmt.Fprintf(&b, "%s\n", r.Description)
	}
	for _, f := range r.Fields {
		fmt.Fprintf(&b, "\n**%s**\n%s\n", f.Name, f.Value)
	}
	return b.String()
}

// Render turns an execution result into a reply.
func Render(language string, result sandbox.ExecuteResult) Reply {
	reply := Reply{
		Description: fmt.Sprintf("Ran `%s` in %s", language, result.Duration.Round(time.Millisecond)),
	}

	switch {
	case result.TimedOut:
		reply.Title = "Execution timed out"
		reply.Status = StatusTimeout
		reply.Color = ColorTimeout
	case result.ExitCode != nil && *result.ExitCode == 0:
		reply.Title = "Execution succeeded"
		reply.Status = StatusSuccess
		reply.Color = ColorSuccess
	default:
		reply.Title = "Execution failed"
		reply.Status = StatusFailure
		reply.Color = ColorFailure
	}

	if result.Stdout != "" {
		reply.Fields = append(reply.Fields, Field{Name: "Output", Value: fence(result.Stdout)})
	}
	if result.Stderr != "" {
		reply.Fields = append(reply.Fields, Field{Name: "Errors", Value: fence(result.Stderr)})
	}
	if result.Stdout == "" && result.Stderr == "" {
		reply.Fields = append(reply.Fields, Field{Name: "Output", Value: "_no output_"})
	}

	exitCode := "unknown"
	if result.ExitCode != nil {
		exitCode = fmt.Sprintf("%d", *result.ExitCode)
	}
	reply.Fields = append(reply.Fields, Field{Name: "Exit code", Value: exitCode})

	return reply
}

// RenderError turns an execution error into a reply. Infrastructure details
// stay in the logs.
func RenderError(err error) Reply {
	reply := Reply{Status: StatusFailure, Color: ColorFailure}

	var (
		unsupported *sandbox.UnsupportedLanguageError
		launchErr   *sandbox.LaunchError
		unknownCmd  *UnknownCommandError
	)

	switch {
	case errors.As(err, &unsupported):
		reply.Title = "Unsupported language"
		reply.Description = fmt.Sprintf("`%s` is not supported, use `!languages` to see what is.", unsupported.Language)
	case errors.Is(err, ErrMissingLanguage):
		reply.Title = "Missing language"
		reply.Description = "Usage: `!compile <language> <code>`"
	case errors.As(err, &unknownCmd):
		reply.Title = "Unknown command"
		reply.Description = fmt.Sprintf("`%s%s` is not a command, use `!help`.", Prefix, unknownCmd.Name)
	case errors.As(err, &launchErr):
		reply.Title = "Sandbox unavailable"
		reply.Description = "The sandbox could not be started, try again later."
	default:
		reply.Title = "Execution failed"
		reply.Description = "Something went wrong while running your code."
	}

	return reply
}

// LanguagesReply lists the supported language identifiers.
func LanguagesReply(ids []string) Reply {
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = "`" + id + "`"
	}
	return Reply{
		Title:       "Supported Programming Languages",
		Description: strings.Join(quoted, ", "),
		Status:      StatusInfo,
		Color:       ColorInfo,
	}
}

// HelpReply renders HelpText.
func HelpReply() Reply {
	return Reply{Title: "Help", Description: HelpText(), Status: StatusInfo, Color: ColorInfo}
}

// fence wraps text in a code block, breaking up any fence inside it.
func fence(text string) string {
	text = strings.ReplaceAll(text, "```", "`\u200b``")
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return "```\n" + text + "```"
}
