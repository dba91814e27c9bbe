package cmd

import (
	"fmt"
	"github.com/jd3nn1s/enginesim/operator"
	"github.com/manifoldco/promptui"
	"github.com/pkg/errors"
	"io"
	"strings"
)

// runConsole reads operator commands until quit, end of input or an
// interrupt.
func runConsole(c operator.Controller, out io.Writer) error {
	fmt.Fprintln(out, "commands: "+strings.Join(operator.Commands, ", "))
	prompt := promptui.Prompt{
		Label: "enginesim",
	}
	for {
		line, err := prompt.Run()
		if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "prompt failed")
		}
		text, err := operator.Apply(c, line)
		if err == operator.ErrQuit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		if text != "" {
			fmt.Fprintln(out, text)
		}
	}
}
