package main

import (
	"os"

	"github.com/routeguard-io/routeguard/cmd/cli"
)

func main() {
	cli.Execute(os.Args[1:])
}
