// Package interactive provides the interactive command-line interface
// for leaudio-client.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/leaudio/leaudio-go/internal/simulator"
	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/csip"
	"github.com/leaudio/leaudio-go/pkg/service"
)

var (
	good = color.New(color.FgGreen)
	bad  = color.New(color.FgRed, color.Bold)
	note = color.New(color.FgCyan)
	dim  = color.New(color.Faint)
)

// Client handles interactive mode for leaudio-client.
type Client struct {
	svc *service.Service
	sim *simulator.Simulator
	rl  *readline.Instance
}

// New creates the shell and registers the callbacks that print service
// notifications.
func New(svc *service.Service, sim *simulator.Simulator) (*Client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "leaudio> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &Client{svc: svc, sim: sim, rl: rl}
	if _, err := svc.RegisterCallbacks(c.callbacks()); err != nil {
		rl.Close()
		return nil, fmt.Errorf("register callbacks: %w", err)
	}
	return c, nil
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("devices"),
	readline.PcItem("groups"),
	readline.PcItem("connect"),
	readline.PcItem("disconnect"),
	readline.PcItem("audio"),
	readline.PcItem("audio-off"),
	readline.PcItem("group-audio"),
	readline.PcItem("group-audio-off"),
	readline.PcItem("add"),
	readline.PcItem("remove"),
	readline.PcItem("lock"),
	readline.PcItem("unlock"),
	readline.PcItem("discover"),
	readline.PcItem("stats"),
	readline.PcItem("quit"),
)

// Stdout returns a writer that coordinates with the readline prompt.
// Use this for log output.
func (c *Client) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the command loop. It returns when the user quits or ctx is
// done, and calls cancel on quit.
func (c *Client) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	go func() {
		<-ctx.Done()
		c.rl.Close()
	}()

	c.printHelp()
	for {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) && ctx.Err() == nil {
				continue
			}
			cancel()
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if quit := c.execute(strings.ToLower(fields[0]), fields[1:]); quit {
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command and reports whether the shell should exit.
func (c *Client) execute(cmd string, args []string) bool {
	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "devices", "ls":
		c.cmdDevices()
	case "groups", "g":
		c.cmdGroups()
	case "connect", "c":
		err = c.withAddr(args, c.svc.Connect)
	case "disconnect", "d":
		err = c.withAddr(args, c.svc.Disconnect)
	case "audio", "a":
		err = c.cmdAudio(args)
	case "audio-off":
		err = c.withAddr(args, c.svc.DisconnectAudio)
	case "group-audio", "ga":
		err = c.cmdGroupAudio(args)
	case "group-audio-off":
		err = c.withGroup(args, c.svc.GroupDisconnectAudio)
	case "add":
		err = c.withGroupAddr(args, c.svc.GroupAddMember)
	case "remove":
		err = c.withGroupAddr(args, c.svc.GroupRemoveMember)
	case "lock":
		err = c.withGroup(args, c.svc.GroupLock)
	case "unlock":
		err = c.withGroup(args, c.svc.GroupUnlock)
	case "discover":
		err = c.cmdDiscover(args)
	case "stats":
		c.cmdStats()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		bad.Fprintf(c.rl.Stdout(), "[!] %v\n", err)
	}
	return false
}

func (c *Client) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
LE Audio Client Commands:
  Devices:
    devices                    - List devices with state and endpoints
    connect <addr>             - Connect a device
    disconnect <addr>          - Disconnect a device
    audio <addr> <context>     - Start audio for a device (e.g. conversational, media)
    audio-off <addr>           - Stop audio for a device's group

  Groups:
    groups                     - List groups
    group-audio <id> <context> - Start audio for every member of a group
    group-audio-off <id>       - Stop audio for a group
    add <id> <addr>            - Add a device to a group
    remove <id> <addr>         - Remove a device from a group
    lock <id> / unlock <id>    - Request or release the set lock
    discover <id> [stop]       - Start or stop member discovery

  General:
    stats                      - Show simulated controller counters
    help                       - Show this help
    quit                       - Exit`)
}

func (c *Client) cmdDevices() {
	out := c.rl.Stdout()
	devices := c.svc.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices")
		return
	}
	for _, d := range devices {
		gid, _ := c.svc.GroupID(d.Addr)
		fmt.Fprintf(out, "%s  group=%d  state=%s  cis=%d  rank=%d\n", d.Addr, gid, stateColor(d.State.String()), d.CISID, d.Rank)
		for _, ep := range d.Endpoints {
			line := fmt.Sprintf("    ase %d %-6s %-16s stream=%d", ep.ID, ep.Role, ep.State, ep.StreamID)
			if ep.Active {
				line += fmt.Sprintf("  %s %d Hz %d bps", ep.Codec.Preset, ep.Codec.SampleRate(), ep.Codec.BitRate())
			}
			fmt.Fprintln(out, line)
		}
	}
}

func (c *Client) cmdGroups() {
	out := c.rl.Stdout()
	for _, g := range c.svc.Groups() {
		key := "-"
		if g.SetKey != nil {
			key = g.SetKey.String()
		}
		members := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, m.String())
		}
		fmt.Fprintf(out, "group %d  key=%s  size=%d  context=%s  latch=%s\n", g.ID, key, g.Size, g.Context, g.Latch)
		if len(members) > 0 {
			dim.Fprintf(out, "    %s\n", strings.Join(members, ", "))
		}
	}
}

func (c *Client) cmdAudio(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: audio <addr> <context>")
	}
	addr, err := bdaddr.Parse(args[0])
	if err != nil {
		return err
	}
	ctx, ok := codec.ParseContext(args[1])
	if !ok {
		return fmt.Errorf("unknown context %q", args[1])
	}
	return c.svc.ConnectAudio(addr, ctx)
}

func (c *Client) cmdGroupAudio(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: group-audio <id> <context>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid group id %q", args[0])
	}
	ctx, ok := codec.ParseContext(args[1])
	if !ok {
		return fmt.Errorf("unknown context %q", args[1])
	}
	return c.svc.GroupConnectAudio(id, ctx)
}

func (c *Client) cmdDiscover(args []string) error {
	if len(args) == 2 && args[1] == "stop" {
		return c.withGroup(args[:1], c.svc.DiscoveryStop)
	}
	return c.withGroup(args, c.svc.DiscoveryStart)
}

func (c *Client) cmdStats() {
	out := c.rl.Stdout()
	stats := c.sim.Stats()
	fmt.Fprintf(out, "connected=%d streams=%d vendor=%d\n", stats.Connected, stats.Streams, stats.VendorCommands)
	ops := make([]string, 0, len(stats.Requests))
	for op := range stats.Requests {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(out, "  %-22s %d\n", op, stats.Requests[op])
	}
}

func (c *Client) withAddr(args []string, fn func(bdaddr.Addr) error) error {
	if len(args) < 1 {
		return errors.New("missing device address")
	}
	addr, err := bdaddr.Parse(args[0])
	if err != nil {
		return err
	}
	return fn(addr)
}

func (c *Client) withGroup(args []string, fn func(int) error) error {
	if len(args) < 1 {
		return errors.New("missing group id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid group id %q", args[0])
	}
	return fn(id)
}

func (c *Client) withGroupAddr(args []string, fn func(int, bdaddr.Addr) error) error {
	if len(args) < 2 {
		return errors.New("usage: <id> <addr>")
	}
	return c.withGroup(args[:1], func(id int) error {
		return c.withAddr(args[1:], func(addr bdaddr.Addr) error {
			return fn(id, addr)
		})
	})
}

// callbacks prints service notifications above the prompt.
func (c *Client) callbacks() service.Callbacks {
	out := func() io.Writer { return c.rl.Stdout() }
	return service.Callbacks{
		ConnectionStateChanged: func(addr bdaddr.Addr, st service.LinkState) {
			if st == service.LinkConnected {
				good.Fprintf(out(), "[EVENT] %s connected\n", addr)
				return
			}
			bad.Fprintf(out(), "[EVENT] %s disconnected\n", addr)
		},
		MemberAdded: func(gid int, addr bdaddr.Addr) {
			note.Fprintf(out(), "[EVENT] %s joined group %d\n", addr, gid)
		},
		MemberRemoved: func(gid int, addr bdaddr.Addr) {
			note.Fprintf(out(), "[EVENT] %s left group %d\n", addr, gid)
		},
		MemberDiscovered: func(gid int, addr bdaddr.Addr) {
			note.Fprintf(out(), "[EVENT] %s discovered for group %d\n", addr, gid)
		},
		DiscoveryStopped: func(gid int) {
			note.Fprintf(out(), "[EVENT] discovery stopped for group %d\n", gid)
		},
		GroupLocked: func(gid int, status csip.Status) {
			note.Fprintf(out(), "[EVENT] group %d locked (status %d)\n", gid, status)
		},
		GroupUnlocked: func(gid int, status csip.Status) {
			note.Fprintf(out(), "[EVENT] group %d unlocked (status %d)\n", gid, status)
		},
		ASEOperationFailed: func(addr bdaddr.Addr, id uint32, op service.ASEOperation, status uint8) {
			bad.Fprintf(out(), "[EVENT] %s stream %d: %s failed with status %#02x\n", addr, id, op, status)
		},
	}
}

func stateColor(s string) string {
	switch s {
	case "STARTED":
		return good.Sprint(s)
	case "CLOSED":
		return dim.Sprint(s)
	default:
		return s
	}
}
