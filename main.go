package main

import "github.com/librarian-dev/librarian/cmd"

func main() {
	cmd.Execute()
}
