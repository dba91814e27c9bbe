// Package operator implements the line oriented command language used to
// drive a transmitter from a console.
package operator

import (
	"fmt"
	"github.com/jd3nn1s/enginesim"
	"github.com/pkg/errors"
	"strconv"
	"strings"
)

// ErrQuit is returned by Apply for the quit command.
var ErrQuit = errors.New("quit")

var ErrUnknownCommand = errors.New("unknown command")

// Controller is the part of a transmitter the operator drives.
type Controller interface {
	Start() error
	Stop()
	Running() bool
	SetSignalValue(enginesim.Signal, int) error
	SetSignalEnabled(enginesim.Signal, bool) error
	State() enginesim.StateSnapshot
}

// Commands lists the accepted commands with their arguments.
var Commands = []string{
	"start",
	"stop",
	"set <signal> <value>",
	"enable <signal>",
	"disable <signal>",
	"status",
	"help",
	"quit",
}

// Apply parses and runs one command line. The returned text is meant for
// the operator; it is empty when there is nothing to report.
func Apply(c Controller, line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "start":
		if err := expectArgs(cmd, args, 0); err != nil {
			return "", err
		}
		if err := c.Start(); err != nil {
			return "", err
		}
		return "transmission started", nil
	case "stop":
		if err := expectArgs(cmd, args, 0); err != nil {
			return "", err
		}
		c.Stop()
		return "transmission stopped", nil
	case "set":
		if err := expectArgs(cmd, args, 2); err != nil {
			return "", err
		}
		s, err := enginesim.ParseSignal(args[0])
		if err != nil {
			return "", err
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return "", errors.Wrapf(err, "invalid value %q", args[1])
		}
		if err := c.SetSignalValue(s, v); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s = %d", s, v), nil
	case "enable", "disable":
		if err := expectArgs(cmd, args, 1); err != nil {
			return "", err
		}
		s, err := enginesim.ParseSignal(args[0])
		if err != nil {
			return "", err
		}
		if err := c.SetSignalEnabled(s, cmd == "enable"); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %sd", s, cmd), nil
	case "status":
		if err := expectArgs(cmd, args, 0); err != nil {
			return "", err
		}
		return Status(c.Running(), c.State()), nil
	case "help", "?":
		return strings.Join(Commands, "\n"), nil
	case "quit", "exit":
		return "", ErrQuit
	}
	return "", errors.Wrapf(ErrUnknownCommand, "%q", cmd)
}

func expectArgs(cmd string, args []string, n int) error {
	if len(args) != n {
		return errors.Errorf("%s takes %d argument(s), got %d", cmd, n, len(args))
	}
	return nil
}

// Status renders the running flag and every signal's value and enabled
// flag, one per line.
func Status(running bool, snap enginesim.StateSnapshot) string {
	var sb strings.Builder
	if running {
		sb.WriteString("running\n")
	} else {
		sb.WriteString("stopped\n")
	}
	for i, s := range enginesim.Signals {
		state := "on"
		if !snap.Enabled[s] {
			state = "off"
		}
		fmt.Fprintf(&sb, "%-27s %6d  %s", s, snap.Values[s], state)
		if i != len(enginesim.Signals)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
