package main

import "github.com/hagzilla/apiserver/cmd"

func main() {
	cmd.Execute()
}
