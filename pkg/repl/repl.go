// Package repl implements a small, trigger-dispatched command loop shared
// by every interactive malhf tool.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// ReplCommand handles one trigger's payload and returns the text to print,
// or an error to report instead.
type ReplCommand func(string, *REPLConfig) (output string, err error)

const (
	// TriggerHelpMetacommand prints every registered command's help string.
	TriggerHelpMetacommand = ".help"

	// ErrorPrependStr is written before any error reported to the output.
	ErrorPrependStr = "ERROR: "
)

var (
	// ErrOverlappingCommands is returned by CombineRepls when two REPLs
	// register the same trigger.
	ErrOverlappingCommands = errors.New("repl: overlapping command triggers")

	// ErrCommandNotFound is reported when an unregistered trigger is used.
	ErrCommandNotFound = errors.New("command not found")
)

// REPL holds a set of triggers, each with a handler and help text.
type REPL struct {
	commands map[string]ReplCommand
	help     map[string]string
}

// REPLConfig carries per-session state into every command invocation.
type REPLConfig struct {
	clientId uuid.UUID
}

// GetAddr returns the session ID this config was built for.
func (replConfig *REPLConfig) GetAddr() uuid.UUID {
	return replConfig.clientId
}

// NewRepl returns an empty REPL.
func NewRepl() *REPL {
	return &REPL{
		commands: make(map[string]ReplCommand),
		help:     make(map[string]string),
	}
}

func contains(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}

// CombineRepls merges several REPLs' command sets into one, failing if any
// two of them register the same trigger.
func CombineRepls(repls []*REPL) (*REPL, error) {
	combined := NewRepl()
	var seen []string
	for _, r := range repls {
		for trigger, action := range r.commands {
			if contains(seen, trigger) {
				return nil, ErrOverlappingCommands
			}
			combined.AddCommand(trigger, action, r.help[trigger])
			seen = append(seen, trigger)
		}
	}
	return combined, nil
}

// GetCommands returns the REPL's trigger-to-handler map.
func (r *REPL) GetCommands() map[string]ReplCommand {
	return r.commands
}

// GetHelp returns the REPL's trigger-to-help-string map.
func (r *REPL) GetHelp() map[string]string {
	return r.help
}

// AddCommand registers action under trigger, overwriting any prior
// registration for the same trigger. The reserved help metacommand trigger
// is silently ignored.
func (r *REPL) AddCommand(trigger string, action ReplCommand, help string) {
	if trigger == TriggerHelpMetacommand {
		return
	}
	r.commands[trigger] = action
	r.help[trigger] = help
}

// HelpString renders every registered command's help line.
func (r *REPL) HelpString() string {
	var sb strings.Builder
	for k, v := range r.help {
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}
	return sb.String()
}

// Run reads whitespace-delimited commands from input, dispatches the first
// field as a trigger against the full line as payload, and writes results
// (or errors) to output, reprinting prompt after every line. It returns
// once input is exhausted.
func (r *REPL) Run(clientId uuid.UUID, prompt string, input io.Reader, output io.Writer) {
	if input == nil {
		input = os.Stdin
	}
	if output == nil {
		output = os.Stdout
	}

	scanner := bufio.NewScanner(input)
	replConfig := &REPLConfig{clientId: clientId}
	fmt.Fprintln(output, "Welcome to the malhf REPL! Type '.help' to see the list of available commands.")
	io.WriteString(output, prompt)

	for scanner.Scan() {
		payload := scanner.Text()
		fields := strings.Fields(payload)
		if len(fields) == 0 {
			io.WriteString(output, prompt)
			continue
		}
		trigger := fields[0]

		if trigger == TriggerHelpMetacommand {
			io.WriteString(output, r.HelpString())
			io.WriteString(output, prompt)
			continue
		}

		if command, exists := r.commands[trigger]; exists {
			result, err := command(payload, replConfig)
			if err != nil {
				fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, err)
			} else {
				if len(result) != 0 && !strings.HasSuffix(result, "\n") {
					result += "\n"
				}
				io.WriteString(output, result)
			}
		} else {
			fmt.Fprintf(output, "%s%s\n", ErrorPrependStr, ErrCommandNotFound)
		}
		io.WriteString(output, prompt)
	}
	io.WriteString(output, "\n")
}
