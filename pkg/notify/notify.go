package notify

import (
	"fmt"
	"io"
	"os"
	"strings"

	fcolor "github.com/fatih/color"
	"github.com/opendatahub-io/maasctl/pkg/timer"
	"golang.org/x/term"
)

// Message type constants.
const (
	// ErrorType is a red message prefixed with ✗.
	ErrorType MessageType = iota
	// WarningType is a yellow message prefixed with ⚠.
	WarningType
	// ActivityType is an uncolored message prefixed with ►.
	ActivityType
	// SuccessType is a green message prefixed with ✔.
	SuccessType
	// InfoType is a blue message prefixed with ℹ.
	InfoType
	// SkipType is a faint message prefixed with ⊘.
	SkipType
	// TitleType is a bold message prefixed with an emoji.
	TitleType
)

// MessageType selects the styling of a message.
type MessageType int

// Message is a single notification.
type Message struct {
	Type    MessageType
	Content string
	Args    []any
	// Timer is only honoured for SuccessType; the total and stage durations
	// are printed below the message.
	Timer timer.Timer
	// Emoji is only honoured for TitleType.
	Emoji string
	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// Errorf writes an error message.
func Errorf(writer io.Writer, format string, args ...any) {
	WriteMessage(Message{Type: ErrorType, Content: format, Args: args, Writer: writer})
}

// Warningf writes a warning message.
func Warningf(writer io.Writer, format string, args ...any) {
	WriteMessage(Message{Type: WarningType, Content: format, Args: args, Writer: writer})
}

// Activityf writes an activity message.
func Activityf(writer io.Writer, format string, args ...any) {
	WriteMessage(Message{Type: ActivityType, Content: format, Args: args, Writer: writer})
}

// Successf writes a success message.
func Successf(writer io.Writer, format string, args ...any) {
	WriteMessage(Message{Type: SuccessType, Content: format, Args: args, Writer: writer})
}

// SuccessWithTimerf writes a success message followed by the timer block.
func SuccessWithTimerf(writer io.Writer, tmr timer.Timer, format string, args ...any) {
	WriteMessage(Message{Type: SuccessType, Content: format, Args: args, Timer: tmr, Writer: writer})
}

// Infof writes an informational message.
func Infof(writer io.Writer, format string, args ...any) {
	WriteMessage(Message{Type: InfoType, Content: format, Args: args, Writer: writer})
}

// Skipf writes a skip message.
func Skipf(writer io.Writer, format string, args ...any) {
	WriteMessage(Message{Type: SkipType, Content: format, Args: args, Writer: writer})
}

// Titlef writes a stage title.
func Titlef(writer io.Writer, emoji, format string, args ...any) {
	WriteMessage(Message{
		Type:    TitleType,
		Content: fmt.Sprintf(format, args...),
		Emoji:   emoji,
		Writer:  writer,
	})
}

// WriteMessage renders msg to its writer.
func WriteMessage(msg Message) {
	if msg.Writer == nil {
		msg.Writer = os.Stdout
	}

	content := msg.Content
	if len(msg.Args) > 0 {
		content = fmt.Sprintf(msg.Content, msg.Args...)
	}

	style := styleFor(msg.Type)
	content = indentMultiline(content, style.symbol)

	if msg.Type == TitleType {
		emoji := msg.Emoji
		if emoji == "" {
			emoji = "ℹ️"
		}

		_, err := style.color.Fprintf(msg.Writer, "%s %s\n", emoji, content)
		reportWriteError(err)

		return
	}

	_, err := style.color.Fprintf(msg.Writer, "%s%s\n", style.symbol, content)
	reportWriteError(err)

	if msg.Type == SuccessType && msg.Timer != nil {
		total, stage := msg.Timer.GetTiming()

		_, err = style.color.Fprintf(msg.Writer, "⏲ current: %s\n", stage.String())
		reportWriteError(err)
		_, err = style.color.Fprintf(msg.Writer, "  total:  %s\n", total.String())
		reportWriteError(err)
	}
}

// DisableColorUnlessTerminal turns colors off when writer is not an interactive terminal.
func DisableColorUnlessTerminal(writer io.Writer) {
	file, ok := writer.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		fcolor.NoColor = true
	}
}

type style struct {
	symbol string
	color  *fcolor.Color
}

func styleFor(msgType MessageType) style {
	switch msgType {
	case ErrorType:
		return style{symbol: "✗ ", color: fcolor.New(fcolor.FgRed)}
	case WarningType:
		return style{symbol: "⚠ ", color: fcolor.New(fcolor.FgYellow)}
	case ActivityType:
		return style{symbol: "► ", color: fcolor.New(fcolor.Reset)}
	case SuccessType:
		return style{symbol: "✔ ", color: fcolor.New(fcolor.FgGreen)}
	case InfoType:
		return style{symbol: "ℹ ", color: fcolor.New(fcolor.FgBlue)}
	case SkipType:
		return style{symbol: "⊘ ", color: fcolor.New(fcolor.Faint)}
	case TitleType:
		return style{symbol: "", color: fcolor.New(fcolor.Reset, fcolor.Bold)}
	default:
		return style{symbol: "", color: fcolor.New(fcolor.Reset)}
	}
}

// reportWriteError keeps output failures out of the command's error path.
func reportWriteError(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "notify: failed to print message: %v\n", err)
	}
}

// indentMultiline aligns continuation lines with the text after the symbol.
func indentMultiline(content, symbol string) string {
	if symbol == "" || !strings.Contains(content, "\n") {
		return content
	}

	indent := strings.Repeat(" ", len([]rune(symbol)))
	lines := strings.Split(content, "\n")

	for i := 1; i < len(lines); i++ {
		if lines[i] == "" {
			continue
		}

		lines[i] = indent + lines[i]
	}

	return strings.Join(lines, "\n")
}
