package main

import "booksync/cmd/booksync/cmd"

func main() {
	cmd.Execute()
}
