package main

import "github.com/sahayak-ai/sahayak/internal/cli"

func main() {
	cli.Execute()
}
