package main

import "github.com/Ryuko2/dinerito/internal/cli"

func main() {
	cli.Execute()
}
