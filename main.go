package main

import "github.com/notargets/fpadj/cmd"

func main() {
	cmd.Execute()
}
