// Package display provides unified output formatting for the taskrunner
// CLI. It visually separates runner orchestration messages from the
// driven agent's subprocess output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Display handles all CLI output with visual hierarchy
type Display struct {
	theme     *Theme
	termWidth int
	noColor   bool
}

// New creates a new Display instance
func New() *Display {
	return NewWithOptions(false)
}

// NewWithOptions creates a Display with configuration
func NewWithOptions(noColor bool) *Display {
	d := &Display{
		termWidth: getTerminalWidth(),
		noColor:   noColor,
	}
	if noColor {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

// getTerminalWidth returns the terminal width, defaulting to 80
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap at 120 for readability
	}
	return width
}

// Box prints a boxed message for runner orchestration output
func (d *Display) Box(lines ...string) {
	d.TitledBox("RUNNER", lines...)
}

// TitledBox prints a boxed message with a custom title
func (d *Display) TitledBox(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}

	width := d.termWidth - 2
	titleLen := len(title) + 4 // "─ TITLE "
	remainingWidth := width - titleLen

	topLine := BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remainingWidth) + BoxTopRight
	fmt.Println(d.theme.RunnerBorder(topLine))

	for _, line := range lines {
		paddedLine := d.padRight(line, width-2)
		fmt.Println(d.theme.RunnerBorder(BoxVertical) + " " + d.theme.RunnerText(paddedLine) + " " + d.theme.RunnerBorder(BoxVertical))
	}

	bottomLine := BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight
	fmt.Println(d.theme.RunnerBorder(bottomLine))
}

// Status prints a single-line runner status message (no box)
func (d *Display) Status(symbol, message string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		d.theme.RunnerBorder(timestamp),
		symbol,
		d.theme.RunnerText(message))
}

// Success prints a success message with green checkmark
func (d *Display) Success(message string) {
	d.Status(d.theme.Success(SymbolSuccess), message)
}

// Error prints an error message with red X
func (d *Display) Error(message string) {
	d.Status(d.theme.Error(SymbolError), message)
}

// Warning prints a warning message with yellow triangle
func (d *Display) Warning(message string) {
	d.Status(d.theme.Warning(SymbolWarning), message)
}

// Info prints an info message with cyan indicator
func (d *Display) Info(label, message string) {
	d.Status(d.theme.Info(label+":"), message)
}

// Resume prints a resume/retry message with cyan arrow
func (d *Display) Resume(message string) {
	d.Status(d.theme.Info(SymbolResume), message)
}

// AgentStart prints a header when a subprocess attempt begins
func (d *Display) AgentStart(taskID string, attempt int) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("  %s %s Starting task %s (attempt %d)...\n",
		d.theme.Dim(timestamp),
		d.theme.AgentTimestamp(GutterAgent),
		taskID, attempt)
}

// wrapText wraps text to specified width, returns up to maxLines
func (d *Display) wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		maxWidth = 80
	}

	text = strings.TrimSpace(text)
	if len(text) <= maxWidth {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len()+len(word)+1 > maxWidth {
			if currentLine.Len() > 0 {
				lines = append(lines, currentLine.String())
				currentLine.Reset()
			}
		}
		if currentLine.Len() > 0 {
			currentLine.WriteString(" ")
		}
		currentLine.WriteString(word)
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	if len(lines) > 5 {
		lines = lines[:5]
		if len(lines[4]) > maxWidth-3 {
			lines[4] = lines[4][:maxWidth-3]
		}
		lines[4] = lines[4] + "..."
	}

	return lines
}

// Agent prints a chunk of agent subprocess output with a left gutter
func (d *Display) Agent(text string) {
	timestamp := time.Now().Format("[15:04:05]")
	gutter := d.theme.AgentTimestamp(GutterAgent)

	lines := d.wrapText(text, d.termWidth-20)

	for i, line := range lines {
		if i == 0 {
			fmt.Printf("  %s %s %s\n", gutter, d.theme.Dim(timestamp), d.theme.AgentText(line))
		} else {
			fmt.Printf("  %s %s%s\n", d.theme.AgentTimestamp(GutterDot), strings.Repeat(" ", 10), d.theme.AgentText(line))
		}
	}
}

// AgentDone prints a completion line for a finished attempt
func (d *Display) AgentDone(outcome string, elapsed time.Duration) {
	timestamp := time.Now().Format("[15:04:05]")
	line := fmt.Sprintf("%s%s %s %s (%s)",
		IndentAgent,
		d.theme.AgentTimestamp(timestamp),
		d.theme.AgentChunkTag("[done]"),
		d.theme.AgentText(outcome),
		elapsed.Round(time.Second))
	fmt.Println(line)
}

// TaskBanner prints the banner shown when a new task starts
func (d *Display) TaskBanner(id, title string) {
	banner := fmt.Sprintf(">>> TASK %s: %s <<<", id, title)
	fmt.Printf("\n%s%s\n\n", IndentAgent, d.theme.RunnerLabel(banner))
}

// SectionBreak prints a horizontal separator for iteration boundaries
func (d *Display) SectionBreak() {
	width := d.termWidth
	fmt.Println(d.theme.Separator(strings.Repeat(SectionBreak, width)))
}

// Iteration prints the iteration banner with progress
func (d *Display) Iteration(current, maxTasks int, taskID string, done, total int) {
	d.SectionBreak()
	line := fmt.Sprintf("Iteration %d/%d: %s (%d/%d tasks done)",
		current, maxTasks, d.theme.Info(taskID), done, total)
	fmt.Println(line)
	d.SectionBreak()
}

// RunnerHeader prints the loop-mode header
func (d *Display) RunnerHeader() {
	fmt.Println(d.theme.Bold("=== Taskrunner Loop ==="))
	fmt.Println()
}

// AllComplete prints the completion message
func (d *Display) AllComplete() {
	fmt.Printf("\n%s All tasks complete!\n", d.theme.Success(SymbolSuccess))
}

// LoopComplete prints the loop completion message
func (d *Display) LoopComplete(message string, completed int) {
	fmt.Printf("\n%s %s\n", d.theme.Success(SymbolSuccess), message)
	fmt.Printf("   %d tasks completed.\n", completed)
}

// LoopFailed prints the loop failure message
func (d *Display) LoopFailed(taskID string, err error, completed int) {
	fmt.Printf("\n%s FAILED: %s\n", d.theme.Error(SymbolError), taskID)
	if err != nil {
		fmt.Printf("   Error: %v\n", err)
	}
	fmt.Printf("\nStopping loop. %d tasks complete, 1 blocked.\n", completed)
	fmt.Println("Run 'taskrunner status' for details.")
}

// MaxTasksReached prints the max-tasks-reached message
func (d *Display) MaxTasksReached(max int) {
	fmt.Printf("\nReached max tasks (%d). Run 'taskrunner run' again to continue.\n", max)
}

// Duration prints execution duration
func (d *Display) Duration(dur time.Duration) {
	fmt.Printf("   Duration: %s\n", dur.Round(time.Second))
}

// Theme returns the current theme for external use
func (d *Display) Theme() *Theme {
	return d.theme
}

// padRight pads a string to the specified width
func (d *Display) padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Truncate truncates text to max length with ellipsis
func Truncate(s string, max int) string {
	s = CleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// CleanText removes newlines and collapses spaces
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
