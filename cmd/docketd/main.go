package main

import "github.com/docketry/docketd/internal/cli"

func main() {
	cli.Execute()
}
