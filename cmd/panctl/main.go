package main

import "github.com/ystepanoff/uwbpan/cmd/panctl/cmd"

func main() {
	cmd.Execute()
}
