package main

import (
	"os"

	"github.com/simonjohansson/gemtracker/internal/gemtracker"
)

func main() {
	os.Exit(gemtracker.Run(os.Args[1:], os.Stdout, os.Stderr, os.Environ()))
}
