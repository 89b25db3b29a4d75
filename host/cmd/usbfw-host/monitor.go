package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"usbfw/config"
	"usbfw/host/adapter"
	"usbfw/host/serial"
	"usbfw/host/sim"
	"usbfw/host/store"
	"usbfw/host/usbdev"
	"usbfw/protocol"
)

const callTimeout = time.Second

func runMonitor(args []string) error {
	fs := flag.NewFlagSet("monitor", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	serialDev := fs.String("serial", "", "Bench UART carrying the response stream")
	useUSB := fs.Bool("usb", false, "Talk to the adapter over USB")
	useSim := fs.Bool("sim", false, "Run against a simulated adapter")
	dbPath := fs.String("db", "", "Store received records in this sqlite database")
	verbose := fs.Bool("verbose", false, "Enable verbose output")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *serialDev != "" {
		cfg.Host.Serial.Device = *serialDev
	}
	if *dbPath != "" {
		cfg.Host.Database = *dbPath
	}

	logger, err := newLogger(cfg.Host.LogLevel, *verbose)
	if err != nil {
		return err
	}

	rw, simulated, err := openTransport(cfg, *useUSB, *useSim)
	if err != nil {
		return err
	}

	a := adapter.New(rw, logger)
	defer a.Close()

	var st *store.Store
	if cfg.Host.Database != "" {
		st, err = store.Open(cfg.Host.Database)
		if err != nil {
			return err
		}
		defer st.Close()
		fmt.Printf("Storing records in %s\n", cfg.Host.Database)
	}

	go printEvents(a, st)

	m := &monitor{a: a, sim: simulated, store: st}
	return m.run(os.Stdin)
}

// openTransport picks the byte stream to the adapter. Exactly one source
// must be selected.
func openTransport(cfg *config.Config, useUSB, useSim bool) (io.ReadWriteCloser, *sim.Sim, error) {
	n := 0
	for _, set := range []bool{cfg.Host.Serial.Device != "", useUSB, useSim} {
		if set {
			n++
		}
	}
	if n != 1 {
		return nil, nil, errors.New("select exactly one of -serial, -usb or -sim")
	}

	switch {
	case useSim:
		s := sim.New(cfg.Firmware)
		fmt.Println("Running against a simulated adapter")
		return s, s, nil

	case useUSB:
		u := cfg.Host.USB
		dev, err := usbdev.Open(usbdev.Options{
			VendorID:    u.VendorID,
			ProductID:   u.ProductID,
			Config:      u.Config,
			Interface:   u.Interface,
			InEndpoint:  u.InEndpoint,
			ReadTimeout: time.Duration(cfg.Host.Serial.ReadTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("Connected to %s\n", dev)
		return dev, nil, nil

	default:
		sc := cfg.Host.Serial
		port, err := serial.Open(serial.Config{
			Device:      sc.Device,
			Baud:        sc.Baud,
			ReadTimeout: time.Duration(sc.ReadTimeoutMS) * time.Millisecond,
		})
		if err != nil {
			return nil, nil, err
		}
		fmt.Printf("Connected to %s\n", sc.Device)
		return port, nil, nil
	}
}

func printEvents(a *adapter.Adapter, st *store.Store) {
	for ev := range a.Events() {
		rec := ev.Record
		fmt.Printf("\n[%s] block %d: %s ext=0x%02x len=%d % x\n",
			ev.Time.Format("15:04:05.000"), ev.Block,
			protocol.TypeName(rec.Type), rec.Ext, rec.Len, rec.Payload())

		if st != nil {
			if err := st.Insert(ev.Time, ev.Block, rec); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
	fmt.Println("\nResponse stream closed")
}

type monitor struct {
	a     *adapter.Adapter
	sim   *sim.Sim
	store *store.Store
}

func (m *monitor) run(in io.Reader) error {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil
		case "help", "?":
			printHelp(m.sim != nil)
		case "echo":
			err = m.echo(args)
		case "rreg":
			err = m.readRegs(args)
		case "wreg":
			err = m.writeReg(args)
		case "watchdog":
			err = m.watchdog(args)
		case "stats":
			m.stats()
		case "history":
			err = m.history(args)
		case "tick":
			err = m.tick(args)
		case "reset":
			err = m.reset()
		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func printHelp(simulated bool) {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help              - Show this help message")
	fmt.Println("  echo [WORD...]    - Echo 32-bit words through the adapter")
	fmt.Println("  rreg ADDR...      - Read registers")
	fmt.Println("  wreg ADDR VAL     - Write a register")
	fmt.Println("  watchdog VAL|off  - Set the USB watchdog counter")
	fmt.Println("  stats             - Show response stream counters")
	fmt.Println("  history [N]       - Show the last N stored records")
	if simulated {
		fmt.Println("  tick [SECONDS]    - Advance the simulated clock")
		fmt.Println("  reset             - Signal a USB bus reset")
	}
	fmt.Println("  quit/exit/q       - Exit the program")
	fmt.Println()
}

func parseWords(args []string) ([]byte, error) {
	buf := make([]byte, 0, 4*len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", arg, err)
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	return buf, nil
}

func (m *monitor) call(typ uint8, payload []byte) (protocol.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return m.a.Call(ctx, typ, payload)
}

func (m *monitor) echo(args []string) error {
	payload, err := parseWords(args)
	if err != nil {
		return err
	}
	start := time.Now()
	rec, err := m.call(protocol.CmdEcho, payload)
	if err != nil {
		return err
	}
	fmt.Printf("echo seq=%d % x (%v)\n", rec.Seq, rec.Payload(), time.Since(start))
	return nil
}

func (m *monitor) readRegs(args []string) error {
	if len(args) == 0 {
		return errors.New("rreg needs at least one address")
	}
	payload, err := parseWords(args)
	if err != nil {
		return err
	}
	rec, err := m.call(protocol.CmdReadReg, payload)
	if err != nil {
		return err
	}
	data := rec.Payload()
	for i := 0; i+4 <= len(data) && i < len(payload); i += 4 {
		fmt.Printf("0x%06x = 0x%08x\n",
			binary.LittleEndian.Uint32(payload[i:]), binary.LittleEndian.Uint32(data[i:]))
	}
	return nil
}

func (m *monitor) writeReg(args []string) error {
	if len(args) != 2 {
		return errors.New("wreg needs an address and a value")
	}
	payload, err := parseWords(args)
	if err != nil {
		return err
	}
	_, err = m.call(protocol.CmdWriteReg, payload)
	return err
}

func (m *monitor) watchdog(args []string) error {
	if len(args) != 1 {
		return errors.New("watchdog needs a value or 'off'")
	}
	arg := args[0]
	if arg == "off" {
		arg = "0xffffffff"
	}
	payload, err := parseWords([]string{arg})
	if err != nil {
		return err
	}
	rec, err := m.call(protocol.CmdUSBWatchdog, payload)
	if err != nil {
		return err
	}
	fmt.Printf("watchdog = 0x%08x\n", binary.LittleEndian.Uint32(rec.Payload()))
	return nil
}

func (m *monitor) stats() {
	blocks, resyncs, discarded := m.a.Stats()
	fmt.Printf("blocks=%d resyncs=%d discarded=%d\n", blocks, resyncs, discarded)
	if m.sim != nil {
		n, next := m.sim.Timers()
		fmt.Printf("timers=%d next=%v\n", n, next)
	}
	if m.store != nil {
		if n, err := m.store.Count(); err == nil {
			fmt.Printf("stored records=%d\n", n)
		}
	}
}

func (m *monitor) history(args []string) error {
	if m.store == nil {
		return errors.New("no database configured")
	}
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
		n = v
	}
	entries, err := m.store.Recent(n)
	if err != nil {
		return err
	}
	for _, e := range entries {
		rec := e.Record
		fmt.Printf("%5d [%s] block %d: %s % x\n", e.ID, e.ReceivedAt.Format("15:04:05.000"),
			e.Block, protocol.TypeName(rec.Type), rec.Payload())
	}
	return nil
}

func (m *monitor) tick(args []string) error {
	if m.sim == nil {
		return errors.New("tick needs a simulated adapter")
	}
	secs := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid seconds %q: %w", args[0], err)
		}
		secs = v
	}
	for i := 0; i < secs; i++ {
		m.sim.Advance(time.Second)
	}
	fmt.Printf("device state: %v\n", m.sim.Device().State())
	return nil
}

func (m *monitor) reset() error {
	if m.sim == nil {
		return errors.New("reset needs a simulated adapter")
	}
	fmt.Printf("device state: %v\n", m.sim.BusReset())
	return nil
}
