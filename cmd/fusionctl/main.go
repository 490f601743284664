package main

import "github.com/kenya-ifp/fusion-api/internal/cli"

func main() {
	cli.Execute()
}
