package main

import "scrub/cmd"

func main() {
	cmd.Execute()
}
