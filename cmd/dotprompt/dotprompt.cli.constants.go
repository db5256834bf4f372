package main

// Command names
const (
	CmdNameRender   = "render"
	CmdNameValidate = "validate"
	CmdNameVersion  = "version"
	CmdNameHelp     = "help"
)

// Flag names - long form
const (
	FlagTemplate = "template"
	FlagData     = "data"
	FlagDataFile = "data-file"
	FlagOutput   = "output"
	FlagFormat   = "format"
	FlagModel    = "model"
)

// Flag names - short form
const (
	FlagTemplateShort = "t"
	FlagDataShort     = "d"
	FlagDataFileShort = "f"
	FlagOutputShort   = "o"
	FlagFormatShort   = "F"
	FlagModelShort    = "m"
)

// Flag default values
const (
	FlagDefaultOutput = "-" // stdout
	FlagDefaultFormat = "text"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Exit codes
const (
	ExitCodeSuccess         = 0
	ExitCodeError           = 1
	ExitCodeUsageError      = 2
	ExitCodeValidationError = 3
	ExitCodeInputError      = 4
)

// Input source indicators
const (
	InputSourceStdin = "-"
)

// Error messages - ALL must be constants
const (
	ErrMsgUnknownCommand    = "unknown command"
	ErrMsgMissingTemplate   = "template source required"
	ErrMsgInvalidJSON       = "invalid JSON data"
	ErrMsgReadFileFailed    = "failed to read file"
	ErrMsgWriteOutputFailed = "failed to write output"
	ErrMsgRenderFailed      = "prompt rendering failed"
	ErrMsgInvalidFormat     = "invalid output format"
)

// Help text templates
const (
	HelpMainUsage = `go-dotprompt - Executable prompt template CLI

Usage:
    dotprompt <command> [options]

Commands:
    render      Render a prompt document into model messages
    validate    Check a prompt document without rendering
    version     Show version information
    help        Show help for a command

Use "dotprompt help <command>" for more information about a command.`

	HelpRenderUsage = `Render a prompt document into model messages

Usage:
    dotprompt render [options]

Options:
    -t, --template <file>   Prompt file (use "-" for stdin)
    -d, --data <json>       JSON input data string
    -f, --data-file <file>  JSON input data file
    -o, --output <file>     Output file (default: stdout)
    -F, --format <format>   Output format: text, json (default: text)
    -m, --model <name>      Override the model named in the frontmatter

Examples:
    dotprompt render -t greeting.prompt -d '{"name": "Alice"}'
    dotprompt render -t greeting.prompt -f data.json -F json
    cat greeting.prompt | dotprompt render -t - -d '{"name": "Bob"}'
    dotprompt render -t greeting.prompt -f data.json -o messages.json`

	HelpValidateUsage = `Check a prompt document without rendering

Usage:
    dotprompt validate [options]

Options:
    -t, --template <file>   Prompt file (use "-" for stdin)
    -F, --format <format>   Output format: text, json (default: text)

Examples:
    dotprompt validate -t greeting.prompt
    cat greeting.prompt | dotprompt validate -t -`

	HelpVersionUsage = `Show version information

Usage:
    dotprompt version [options]

Options:
    -F, --format <format>   Output format: text, json (default: text)`

	HelpHelpUsage = `Show help for a command

Usage:
    dotprompt help [command]

Commands:
    render      Show help for render command
    validate    Show help for validate command
    version     Show help for version command`
)

// Version output format templates
const (
	VersionTextTemplate = "go-dotprompt version %s\nCommit: %s\nBuilt: %s\nGo: %s"
	VersionUnknown      = "unknown"
)

// Validation output format templates
const (
	ValidationTextSuccess = "Prompt is valid"
	ValidationTextFailure = "Prompt is invalid: %v"
)

// Render text output formatting
const (
	FmtMessageHeader = "--- %s ---"
	FmtMediaPart     = "<media %s>"
)

// CLI metadata
const (
	CLIName        = "dotprompt"
	CLIDescription = "Executable prompt template CLI"
)

// File permission constant
const (
	FilePermissions = 0644
)

// Format string constants
const (
	FmtErrorWithDetail = "%s: %s\n"
	FmtErrorWithCause  = "%s: %v\n"
	FmtNewline         = "\n"
)
