package main

import "github.com/jmcleod/switchboard/cmd/switchboard/cmd"

func main() {
	cmd.Execute()
}
