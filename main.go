package main

import "github.com/brk3/steady/cmd"

func main() {
	cmd.Execute()
}
