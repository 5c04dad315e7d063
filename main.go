package main

import "github.com/collabzk/co-groth16/cmd"

func main() {
	cmd.Execute()
}
