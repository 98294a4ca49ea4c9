package main

import "github.com/prithuhomes/customerportal/internal/cli"

func main() {
	cli.Execute()
}
