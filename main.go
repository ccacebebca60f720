package main

import (
	"github.com/Fallstop/SpeedSwitchHub/cmd/proxy"
	"github.com/Fallstop/SpeedSwitchHub/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	proxy.Execute()
}
