package main

import "github.com/birch-kv/birch/cmd"

func main() {
	cmd.Execute()
}
