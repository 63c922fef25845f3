package main

import "accesslog-etl/internal/cmd"

func main() {
	cmd.Execute()
}
