package main

import (
	"os"

	"github.com/jeremysolarz/invoices-with-card-element/cli"
)

func main() {
	if err := cli.Execute(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
