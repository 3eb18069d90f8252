package main

import "github.com/narabid/bid-crawler/cmd"

func main() {
	cmd.Execute()
}
