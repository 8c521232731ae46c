package main

import (
	"gitlab.com/fidonext/connectivity-service/cmd"
)

func main() {
	cmd.Execute()
}
