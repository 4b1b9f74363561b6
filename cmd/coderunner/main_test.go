package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/coderunner/config"
	"github.com/isdmx/coderunner/sandbox"
)

// runCLI executes the root command in a scratch directory holding configYAML
func runCLI(t *testing.T, configYAML, stdin string, args ...string) (string, int) {
	t.Helper()
	out, _, code := runCLIWithStderr(t, configYAML, stdin, args...)
	return out, code
}

func runCLIWithStderr(t *testing.T, configYAML, stdin string, args ...string) (string, string, int) {
	t.Helper()
	t.Chdir(t.TempDir())
	if configYAML != "" {
		require.NoError(t, os.WriteFile("config.yaml", []byte(configYAML), 0o600))
	}

	// Flags are package globals
	languageFlag, jsonFlag, configFlag = "", false, ""

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	code := execute(rootCmd)
	return out.String(), errOut.String(), code
}

const localConfig = `
logging:
  level: error
sandbox:
  backend: local
  enable_local_backend: true
  timeout_sec: 10
languages:
  sh:
    image: local
    invocation: sh
    file_extension: sh
`

func TestResultError(t *testing.T) {
	zero, three := 0, 3

	assert.NoError(t, resultError(sandbox.ExecuteResult{ExitCode: &zero}))

	var exitErr *exitCodeError
	require.ErrorAs(t, resultError(sandbox.ExecuteResult{ExitCode: &three}), &exitErr)
	assert.Equal(t, 3, exitErr.code)

	require.ErrorAs(t, resultError(sandbox.ExecuteResult{}), &exitErr)
	assert.Equal(t, 1, exitErr.code)
}

func TestReadSource(t *testing.T) {
	code, err := readSource(strings.NewReader("print(1)"), "-")
	require.NoError(t, err)
	assert.Equal(t, "print(1)", code)

	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("print(2)"), 0o600))
	code, err = readSource(nil, path)
	require.NoError(t, err)
	assert.Equal(t, "print(2)", code)

	_, err = readSource(nil, filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestLanguageForFile(t *testing.T) {
	cfg := &config.Config{}

	tests := []struct {
		path     string
		expected string
		hasError bool
	}{
		{"hello.py", "python", false},
		{"main.CPP", "cpp", false},
		{"Main.scala", "scala", false},
		{"script.rb", "", true},
		{"Makefile", "", true},
		{"-", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			language, err := languageForFile(cfg, tt.path)
			if tt.hasError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, language)
		})
	}
}

func TestLanguagesCommand(t *testing.T) {
	out, code := runCLI(t, "", "", "languages")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "LANGUAGE")
	assert.Contains(t, out, "compiler-bot-python-rt:latest")
	assert.Regexp(t, `cpp\s+compiler-bot-cpp-rt:latest\s+compiled`, out)
}

func TestConfigCommand(t *testing.T) {
	out, code := runCLI(t, "sandbox:\n  timeout_sec: 12\n", "", "config")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "timeout_sec: 12")
	assert.Contains(t, out, "backend: docker")
}

func TestConfigCommandInvalid(t *testing.T) {
	_, code := runCLI(t, "sandbox:\n  timeout_sec: -1\n", "", "config")
	assert.Equal(t, 1, code)
}

func TestRunCommand(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		out, code := runCLI(t, localConfig, "echo hello", "run", "--language", "sh")
		assert.Equal(t, 0, code)
		assert.Contains(t, out, "Execution succeeded")
		assert.Contains(t, out, "hello")
	})

	t.Run("ExitStatus", func(t *testing.T) {
		out, code := runCLI(t, localConfig, "echo broken >&2; exit 4", "run", "-l", "sh", "-")
		assert.Equal(t, 4, code)
		assert.Contains(t, out, "Execution failed")
		assert.Contains(t, out, "broken")
	})

	t.Run("JSON", func(t *testing.T) {
		out, code := runCLI(t, localConfig, "printf 42", "run", "--language", "sh", "--json")
		assert.Equal(t, 0, code)
		assert.Contains(t, out, `"stdout": "42"`)
		assert.Contains(t, out, `"exit_code": 0`)
	})

	t.Run("GuessFromExtension", func(t *testing.T) {
		t.Chdir(t.TempDir())
		require.NoError(t, os.WriteFile("config.yaml", []byte(localConfig), 0o600))
		require.NoError(t, os.WriteFile("prog.sh", []byte("echo from-file"), 0o600))

		languageFlag, jsonFlag, configFlag = "", false, ""
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetArgs([]string{"run", "prog.sh"})
		t.Cleanup(func() {
			rootCmd.SetOut(nil)
			rootCmd.SetArgs(nil)
		})

		assert.Equal(t, 0, execute(rootCmd))
		assert.Contains(t, out.String(), "from-file")
	})

	t.Run("EmptyCode", func(t *testing.T) {
		out, code := runCLI(t, localConfig, "   ", "run", "--language", "sh")
		assert.Equal(t, 1, code)
		assert.Contains(t, out, sandbox.EmptyCodeMessage)
	})

	t.Run("UnsupportedLanguage", func(t *testing.T) {
		out, stderr, code := runCLIWithStderr(t, localConfig, "x", "run", "--language", "cobol")
		assert.Equal(t, 1, code)
		assert.Contains(t, out, "Unsupported language")
		assert.Empty(t, stderr, "rendered errors are reported once")
	})

	t.Run("UnsupportedLanguageJSON", func(t *testing.T) {
		out, stderr, code := runCLIWithStderr(t, localConfig, "x", "run", "--language", "cobol", "--json")
		assert.Equal(t, 1, code)
		assert.Empty(t, out)
		assert.Contains(t, stderr, "unsupported language: cobol")
	})

	t.Run("MissingLanguage", func(t *testing.T) {
		_, code := runCLI(t, localConfig, "x", "run")
		assert.Equal(t, 1, code)
	})
}
