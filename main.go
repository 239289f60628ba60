package main

import "github.com/mselser95/orderbook-snapshotter/cmd"

func main() {
	cmd.Execute()
}
