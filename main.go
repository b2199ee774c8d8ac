package main

import "github.com/naka-gawa/pr-tracker/cmd"

func main() {
	cmd.Execute()
}
