package core

// TimerFreq is the rate of the free running clock counter on the AHB bus
const TimerFreq = 40000000

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint64) uint32 {
	return uint32(us * TimerFreq / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint64 {
	return uint64(ticks) * 1000000 / TimerFreq
}
