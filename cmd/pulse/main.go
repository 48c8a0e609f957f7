package main

import (
	"github.com/LoriKarikari/pulse/internal/cli"
)

func main() {
	cli.Execute()
}
