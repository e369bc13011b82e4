package main

import (
	"context"
	"flag"

	"authkeeper/internal/client/cli"
)

func main() {

	serverAddr := flag.String("a", "http://127.0.0.1:8080", "server address")
	flag.Parse()

	ctx := context.Background()
	app := cli.NewApp(*serverAddr)
	app.Run(ctx)
}
