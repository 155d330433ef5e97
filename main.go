package main

import "github.com/kozaktomas/photo-story/cmd"

func main() {
	cmd.Execute()
}
