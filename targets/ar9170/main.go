//go:build tinygo && ar9170

package main

import (
	"usbfw/core"
)

func main() {
	regs := mmio{}

	dev := core.NewDevice(core.DefaultConfig(), regs)

	cmds := core.NewCommandRegistry()
	core.RegisterBuiltinCommands(cmds, dev)
	dev.SetCommandProcessor(cmds)

	up := newUpQueue(regs)
	dev.SetTransfer(up)
	dev.SetBoard(&board{regs: regs})

	sched := core.NewScheduler()
	dev.StartWatchdog(sched, clockNow(regs))

	for {
		res := dev.HandleUSB()

		if res == core.ResultContinue && up.done() {
			dev.ReleaseBlock()
			dev.StatusIn()
		}
		if res == core.ResultContinue {
			sched.Dispatch(clockNow(regs))
			res = dev.State()
		}

		if res != core.ResultContinue {
			// Wait for the hardware watchdog
			for {
			}
		}
	}
}
