// Command nsbi runs an NSB/NSS game.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/zurustar/nsbi/pkg/app"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	application := app.New(app.WithStdio(stdin, stdout))
	if err := application.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
