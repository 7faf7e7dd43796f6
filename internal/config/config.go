// Package config parses the invocation surface: the message, its type, the
// action buttons, and the exit policy. Parsing is hand-rolled because the
// button flags consume two positional tokens each, which standard flag
// handling cannot express.
package config

import (
	"errors"
	"fmt"
)

// Button is one clickable action: a label and the shell command it runs.
type Button struct {
	Label   string
	Command string
}

// ExitPolicy decides what happens after the first activation.
type ExitPolicy int

const (
	// ExitOnActivate closes the bar after the first activation (default).
	ExitOnActivate ExitPolicy = iota
	// ExitNever keeps the bar up; parsed for forward compatibility, the
	// session currently always closes on first activation.
	ExitNever
)

// Options are the immutable inputs the bar runs with.
type Options struct {
	Message         string
	MessageType     string // error, warning or info
	Buttons         []Button
	DetailedMessage bool
	Detail          string // stdin contents when DetailedMessage is set
	ExitPolicy      ExitPolicy
	ThemePath       string
	Verbose         bool
}

// Parse reads the command line (without the binary name).
func Parse(args []string) (*Options, error) {
	opts := &Options{MessageType: "error"}
	haveMessage := false

	next := func(i *int) (string, bool) {
		*i++
		if *i >= len(args) {
			return "", false
		}
		return args[*i], true
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-m", "--message":
			v, ok := next(&i)
			if !ok {
				return nil, errors.New("missing required arg message (-m/--message)")
			}
			opts.Message = v
			haveMessage = true
		case "-t", "--type":
			v, ok := next(&i)
			if !ok {
				return nil, errors.New("missing required arg type (-t/--type)")
			}
			opts.MessageType = v
		case "-l", "--detailed-message":
			opts.DetailedMessage = true
		// -b and -B are handled the same for now.
		case "-b", "--button", "-B", "--button-no-terminal":
			label, ok := next(&i)
			if !ok {
				return nil, errors.New("button missing text")
			}
			command, ok := next(&i)
			if !ok {
				return nil, errors.New("button missing action")
			}
			opts.Buttons = append(opts.Buttons, Button{Label: label, Command: command})
		case "--keep-open":
			opts.ExitPolicy = ExitNever
		case "--theme":
			v, ok := next(&i)
			if !ok {
				return nil, errors.New("missing theme file path (--theme)")
			}
			opts.ThemePath = v
		case "-v", "--verbose":
			opts.Verbose = true
		default:
			return nil, fmt.Errorf("invalid arg '%s'", args[i])
		}
	}

	if !haveMessage {
		return nil, errors.New("missing required arg message (-m/--message)")
	}
	return opts, nil
}
