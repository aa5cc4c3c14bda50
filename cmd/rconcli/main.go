// rconcli -- credential provisioning and smoke-test client for gorcond.
package main

import (
	"github.com/dantte-lp/gorcon/cmd/rconcli/commands"
)

func main() {
	commands.Execute()
}
