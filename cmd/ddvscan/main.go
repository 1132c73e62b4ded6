package main

import "github.com/example/ddv-scanner/cmd"

func main() {
	cmd.Execute()
}
