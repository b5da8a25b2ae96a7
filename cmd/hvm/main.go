package main

import (
	"fmt"
	"os"

	"github.com/zurustar/hvm/pkg/app"
)

func main() {
	application := app.New(os.Stdout, os.Stderr)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hvm: %v\n", err)
		os.Exit(app.ExitCode(err))
	}
}
