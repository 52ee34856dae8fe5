package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/hidbus/hidbus-go/pkg/backends/virtual"
	"github.com/hidbus/hidbus-go/pkg/hid"
	"github.com/hidbus/hidbus-go/pkg/whitelist"
)

// console is the readline command loop around one bus and one virtual
// backend.
type console struct {
	bus     *hid.Bus
	backend *virtual.Backend
	store   whitelist.Store
	rl      *readline.Instance
}

// notifyPrinter prints attach/detach notifications without tearing the
// prompt.
type notifyPrinter struct {
	rl *readline.Instance
}

func (p *notifyPrinter) DeviceAttached(slot hid.HandleSlot) {
	fmt.Fprintf(p.rl.Stdout(), "device attached: handle=%d vid=%04x pid=%04x\n",
		slot.Handle, slot.VendorID, slot.ProductID)
}

func (p *notifyPrinter) DeviceDetached(slot hid.HandleSlot) {
	fmt.Fprintf(p.rl.Stdout(), "device detached: handle=%d vid=%04x pid=%04x\n",
		slot.Handle, slot.VendorID, slot.ProductID)
}

func newConsole(bus *hid.Bus, backend *virtual.Backend, store whitelist.Store) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "hidbus> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &console{bus: bus, backend: backend, store: store, rl: rl}, nil
}

// run executes the command loop until EOF or quit.
func (c *console) run() error {
	defer c.rl.Close()

	printer := &notifyPrinter{rl: c.rl}
	c.bus.RegisterClient(printer)
	defer c.bus.UnregisterClient(printer)

	c.printHelp()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "list", "l":
			c.cmdList()

		case "plug":
			c.cmdPlug(args)

		case "unplug":
			c.cmdUnplug(args)

		case "read", "r":
			c.cmdRead(args)

		case "write", "w":
			c.cmdWrite(args)

		case "report":
			c.cmdReport(args)

		case "desc", "d":
			c.cmdDescriptor(args)

		case "idle":
			c.cmdIdle(args)

		case "protocol":
			c.cmdProtocol(args)

		case "queue":
			c.cmdQueue(args)

		case "wl":
			c.cmdWhitelist(args)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			return nil

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
HID Bus Commands:
  Devices:
    list                      - List attached devices and free slots
    plug <vid> <pid> [desc]   - Plug a virtual device (hex IDs, optional hex descriptor)
    unplug <handle>           - Unplug a device
    queue <handle> <hex>      - Queue an input report on a virtual device

  Transfers:
    read <handle> [len]       - Interrupt-in transfer (default 64 bytes)
    write <handle> <hex>      - Interrupt-out transfer
    report <handle> <type> <id> <hex> - Send a set-report request
    desc <handle> [len]       - Dump a report descriptor
    idle <handle> <duration>  - Send a set-idle request
    protocol <handle> <0|1>   - Select boot (0) or report (1) protocol

  Whitelist:
    wl list                   - Show whitelist entries
    wl add <vid> <pid> [name] - Add an entry (pid 0 = whole vendor)
    wl remove <vid> <pid>     - Remove an entry
    wl save                   - Persist the whitelist file

  General:
    help                      - Show this help
    quit                      - Exit`)
}

func (c *console) cmdList() {
	records := c.bus.Devices()
	if len(records) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "no devices attached")
	}
	for _, record := range records {
		slot := record.Slot
		state := "closed"
		if record.Device.IsOpened() {
			state = "open"
		}
		fmt.Fprintf(c.rl.Stdout(), "  handle=%-4d vid=%04x pid=%04x if=%d maxrx=%d maxtx=%d %s\n",
			slot.Handle, slot.VendorID, slot.ProductID, slot.InterfaceIndex,
			slot.MaxPacketSizeRX, slot.MaxPacketSizeTX, state)
	}
	fmt.Fprintf(c.rl.Stdout(), "%d of %d slots free\n", c.bus.FreeSlots(), hid.PoolCapacity)
}

func (c *console) cmdPlug(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: plug <vid> <pid> [descriptor-hex]")
		return
	}
	vid, err1 := parseID(args[0])
	pid, err2 := parseID(args[1])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(c.rl.Stdout(), "invalid vendor or product ID")
		return
	}
	var descriptor []byte
	if len(args) > 2 {
		var err error
		descriptor, err = hex.DecodeString(args[2])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "invalid descriptor: %v\n", err)
			return
		}
	}
	dev := virtual.NewDevice(virtual.DeviceConfig{
		VendorID:   vid,
		ProductID:  pid,
		Descriptor: descriptor,
	})
	if !c.backend.Plug(dev) {
		fmt.Fprintln(c.rl.Stdout(), "device rejected (whitelist or pool exhausted)")
	}
}

func (c *console) cmdUnplug(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: unplug <handle>")
		return
	}
	dev := c.virtualDevice(args[0])
	if dev == nil {
		return
	}
	c.backend.Unplug(dev)
}

func (c *console) cmdQueue(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: queue <handle> <hex>")
		return
	}
	dev := c.virtualDevice(args[0])
	if dev == nil {
		return
	}
	data, err := hex.DecodeString(args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "invalid report data: %v\n", err)
		return
	}
	if !dev.QueueReport(data) {
		fmt.Fprintln(c.rl.Stdout(), "report queue full")
	}
}

func (c *console) cmdRead(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: read <handle> [len]")
		return
	}
	handle, ok := c.parseHandle(args[0])
	if !ok {
		return
	}
	length := 64
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fmt.Fprintln(c.rl.Stdout(), "invalid length")
			return
		}
		length = n
	}
	buf := make([]byte, length)
	status := c.bus.Read(handle, buf, nil)
	if status < 0 {
		c.printStatus("read", status)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "read %d bytes: %x\n", status, buf[:status])
}

func (c *console) cmdWrite(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: write <handle> <hex>")
		return
	}
	handle, ok := c.parseHandle(args[0])
	if !ok {
		return
	}
	data, err := hex.DecodeString(args[1])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "invalid data: %v\n", err)
		return
	}
	status := c.bus.Write(handle, data, nil)
	if status < 0 {
		c.printStatus("write", status)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "wrote %d bytes\n", status)
}

func (c *console) cmdReport(args []string) {
	if len(args) != 4 {
		fmt.Fprintln(c.rl.Stdout(), "usage: report <handle> <type> <id> <hex>")
		return
	}
	handle, ok := c.parseHandle(args[0])
	if !ok {
		return
	}
	reportType, err1 := strconv.ParseUint(args[1], 0, 8)
	reportID, err2 := strconv.ParseUint(args[2], 0, 8)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(c.rl.Stdout(), "invalid report type or ID")
		return
	}
	data, err := hex.DecodeString(args[3])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "invalid data: %v\n", err)
		return
	}
	status := c.bus.SetReport(handle, uint8(reportType), uint8(reportID), data, nil)
	if status < 0 {
		c.printStatus("report", status)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "sent %d bytes\n", status)
}

func (c *console) cmdDescriptor(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "usage: desc <handle> [len]")
		return
	}
	handle, ok := c.parseHandle(args[0])
	if !ok {
		return
	}
	length := 64
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fmt.Fprintln(c.rl.Stdout(), "invalid length")
			return
		}
		length = n
	}
	buf := make([]byte, length)
	status := c.bus.GetDescriptor(handle, 0x22, 0, 0, buf, nil)
	if status < 0 {
		c.printStatus("desc", status)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "descriptor: %x\n", buf)
}

func (c *console) cmdIdle(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: idle <handle> <duration>")
		return
	}
	handle, ok := c.parseHandle(args[0])
	if !ok {
		return
	}
	duration, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), "invalid duration")
		return
	}
	c.printStatus("idle", c.bus.SetIdle(handle, 0, 0, uint8(duration), nil))
}

func (c *console) cmdProtocol(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.rl.Stdout(), "usage: protocol <handle> <0|1>")
		return
	}
	handle, ok := c.parseHandle(args[0])
	if !ok {
		return
	}
	protocol, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		fmt.Fprintln(c.rl.Stdout(), "invalid protocol")
		return
	}
	c.printStatus("protocol", c.bus.SetProtocol(handle, 0, uint8(protocol), nil))
}

func (c *console) cmdWhitelist(args []string) {
	if c.store == nil {
		fmt.Fprintln(c.rl.Stdout(), "no whitelist configured (all devices permitted)")
		return
	}
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		entries := c.store.List()
		if len(entries) == 0 {
			fmt.Fprintln(c.rl.Stdout(), "whitelist empty (all devices permitted)")
			return
		}
		for _, e := range entries {
			fmt.Fprintf(c.rl.Stdout(), "  vid=%04x pid=%04x %s\n", e.VendorID, e.ProductID, e.Name)
		}
	case "add":
		if len(args) < 3 {
			fmt.Fprintln(c.rl.Stdout(), "usage: wl add <vid> <pid> [name]")
			return
		}
		vid, err1 := parseID(args[1])
		pid, err2 := parseID(args[2])
		if err1 != nil || err2 != nil {
			fmt.Fprintln(c.rl.Stdout(), "invalid vendor or product ID")
			return
		}
		entry := whitelist.Entry{VendorID: vid, ProductID: pid}
		if len(args) > 3 {
			entry.Name = strings.Join(args[3:], " ")
		}
		if err := c.store.Add(entry); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "add failed: %v\n", err)
		}
	case "remove":
		if len(args) != 3 {
			fmt.Fprintln(c.rl.Stdout(), "usage: wl remove <vid> <pid>")
			return
		}
		vid, err1 := parseID(args[1])
		pid, err2 := parseID(args[2])
		if err1 != nil || err2 != nil {
			fmt.Fprintln(c.rl.Stdout(), "invalid vendor or product ID")
			return
		}
		if err := c.store.Remove(vid, pid); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "remove failed: %v\n", err)
		}
	case "save":
		if err := c.store.Save(); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "save failed: %v\n", err)
		}
	default:
		fmt.Fprintf(c.rl.Stdout(), "unknown whitelist command: %s\n", args[0])
	}
}

// virtualDevice resolves a handle argument to the virtual device behind it.
func (c *console) virtualDevice(arg string) *virtual.Device {
	handle, ok := c.parseHandle(arg)
	if !ok {
		return nil
	}
	dev := c.bus.DeviceByHandle(handle, false)
	if dev == nil {
		fmt.Fprintf(c.rl.Stdout(), "no device with handle %d\n", handle)
		return nil
	}
	vdev, ok := dev.(*virtual.Device)
	if !ok {
		fmt.Fprintf(c.rl.Stdout(), "handle %d is not a virtual device\n", handle)
		return nil
	}
	return vdev
}

func (c *console) parseHandle(arg string) (uint32, bool) {
	handle, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "invalid handle: %s\n", arg)
		return 0, false
	}
	return uint32(handle), true
}

func (c *console) printStatus(op string, status int32) {
	if status >= 0 {
		fmt.Fprintf(c.rl.Stdout(), "%s ok\n", op)
		return
	}
	class, native := hid.DecodeError(status)
	fmt.Fprintf(c.rl.Stdout(), "%s failed: status=%d (class=0x%x native=%d)\n", op, status, class, native)
}

// parseID parses a vendor or product ID, accepting both bare hex ("057e")
// and prefixed ("0x057e") forms.
func parseID(arg string) (uint16, error) {
	s := strings.TrimPrefix(strings.ToLower(arg), "0x")
	id, err := strconv.ParseUint(s, 16, 16)
	return uint16(id), err
}
