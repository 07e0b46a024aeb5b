package main

import "github.com/oshokin/swift-update-provider/cmd/update-provider/cmd"

func main() {
	cmd.Execute()
}
