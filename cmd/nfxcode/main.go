package main

import "nfxcode/internal/cli"

func main() {
	cli.Execute()
}
