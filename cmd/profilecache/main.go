package main

import "github.com/vietddude/profilecache/internal/cli"

func main() {
	cli.Execute()
}
