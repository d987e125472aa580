package main

import "github.com/clems4ever/exi-encoder/cmd"

func main() {
	cmd.Execute()
}
