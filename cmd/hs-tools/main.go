package main

import (
	"fmt"
	"os"

	"github.com/nodech/hsd-tools/internal/cmd"
	"github.com/nodech/hsd-tools/internal/errors"
)

func main() {
	err := cmd.Execute()
	if err != nil && !errors.Is(err, errors.ErrInterrupted) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(errors.ExitCode(err))
}
