package main

import "github.com/yapay-ai/costwatch/internal/cli"

func main() {
	cli.Execute()
}
