package main

import (
	"os"

	"github.com/webaudit/webaudit/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
