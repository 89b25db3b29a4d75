//go:build tinygo && bench

package main

import (
	"machine"
	"time"

	"usbfw/core"
	"usbfw/core/regbus"
)

func main() {
	// Give the host time to open the serial port
	time.Sleep(2 * time.Second)

	if err := machine.I2C0.Configure(machine.I2CConfig{Frequency: 400000}); err != nil {
		halt("i2c configure failed: " + err.Error())
	}
	regs := regbus.New(machine.I2C0, 0)

	dev := core.NewDevice(core.DefaultConfig(), regs)

	cmds := core.NewCommandRegistry()
	core.RegisterBuiltinCommands(cmds, dev)
	dev.SetCommandProcessor(cmds)

	up := &serialUp{}
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

		if err := regs.Err(); err != nil {
			halt("register bridge failed: " + err.Error())
		}
		if res != core.ResultContinue {
			halt("device stopped: " + res.String())
		}
	}
}

// halt reports why the bench stopped and parks the MCU
func halt(msg string) {
	println(msg)
	for {
		time.Sleep(time.Second)
	}
}
