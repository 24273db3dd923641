package main

import "camera-stream/internal/presentation/cli"

func main() {
	cli.Execute(cli.NewViewerCommand())
}
