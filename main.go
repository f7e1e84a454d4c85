package main

import "github.com/screenscorch/screenscorch/cmd"

func main() {
	cmd.Execute()
}
