package main

import "github.com/go-go-golems/dex/cmd/dex/cli"

func main() {
	cli.Execute()
}
