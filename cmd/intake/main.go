package main

import "github.com/emrgen/intake/cmd"

func main() {
	cmd.Execute()
}
