package main

import "gatekeeper/internal/cli"

func main() {
	cli.Execute()
}
