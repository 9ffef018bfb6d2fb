package main

import "github.com/theirongolddev/allot/cmd"

func main() {
	cmd.Execute()
}
