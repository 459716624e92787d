package main

import (
	"markethealth/cmd/markethealth/commands"
	"markethealth/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
