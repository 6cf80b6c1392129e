package main

import "github.com/gaurav-prasanna/kbpipe/cmd"

func main() {
	cmd.Execute()
}
