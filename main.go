package main

import "github.com/strandkv/strand/cmd"

func main() {
	cmd.Execute()
}
