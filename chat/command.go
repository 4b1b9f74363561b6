package chat

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Prefix starts every chat command.
const Prefix = "!"

// Command names
const (
	CommandCompile   = "compile"
	CommandLanguages = "languages"
	CommandHelp      = "help"
)

var (
	// ErrNotCommand is returned for messages that do not start with Prefix.
	ErrNotCommand = errors.New("not a command")
	// ErrMissingLanguage is returned for a compile command without a language.
	ErrMissingLanguage = errors.New("missing language, usage: !compile <language> <code>")
)

// UnknownCommandError is returned for a prefixed word that is not a command.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.Name)
}

// Command is a parsed chat command. Language and Code are only set for
// compile.
type Command struct {
	Name     string
	Language string
	Code     string
}

// ParseCommand parses a chat message. For compile the code is taken from the
// first fenced block after the language, or from the raw remainder when the
// message has none. Empty code is passed through for the executor to reject.
func ParseCommand(msg string) (Command, error) {
	msg = strings.TrimSpace(msg)
	if !strings.HasPrefix(msg, Prefix) {
		return Command{}, ErrNotCommand
	}

	name, rest := splitWord(strings.TrimPrefix(msg, Prefix))
	name = strings.ToLower(name)

	switch name {
	case CommandLanguages, CommandHelp:
		return Command{Name: name}, nil
	case CommandCompile:
	default:
		return Command{}, &UnknownCommandError{Name: name}
	}

	language, rest := splitWord(rest)
	if language == "" || strings.HasPrefix(language, "```") {
		return Command{}, ErrMissingLanguage
	}

	code, ok := ExtractCodeBlock(rest)
	if !ok {
		code = strings.TrimSpace(rest)
	}

	return Command{Name: CommandCompile, Language: language, Code: code}, nil
}

// splitWord returns the first whitespace-delimited word of s and everything
// after it, with newlines in the remainder preserved.
func splitWord(s string) (word, rest string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

// HelpText describes the available commands.
func HelpText() string {
	return strings.Join([]string{
		"Compiles and runs code for you in an isolated sandbox.",
		"",
		"`!compile <language> <code>` runs the code, fenced code blocks are supported",
		"`!languages` lists the supported languages",
		"`!help` shows this message",
	}, "\n")
}
