package main

import (
	"github.com/JEEEEEEHO/currecnyAlert/internal/cli"
)

func main() {
	cli.Execute()
}
