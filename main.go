package main

import "github.com/theirongolddev/jobmetrics/cmd"

func main() {
	cmd.Execute()
}
