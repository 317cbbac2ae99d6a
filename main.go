package main

import "epochwatch/internal/cli"

func main() {
	cli.Execute()
}
