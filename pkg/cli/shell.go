// Package cli provides the ishell backed operator shell of bridgectl.
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/uartbridge/pkg/stats"
	"github.com/robotalks/uartbridge/pkg/uart/bugst"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	BrokerURL   string
	Window      time.Duration

	Shell *ishell.Shell
}

const (
	shellKey = "$shell"
	prompt   = "bridge > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	brokerURL  = "mqtt://localhost:1883/uartbridge/"
	window     = 2 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&BridgesCmd,
		&StatusCmd,
	}
)

func init() {
	if val := os.Getenv("UARTBRIDGE_MQTT_URL"); val != "" {
		brokerURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&brokerURL, "mqtt", brokerURL, "MQTT broker URL.")
	flag.DurationVar(&window, "window", window, "How long to listen for bridges.")
}

// New creates a new shell from flags.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		BrokerURL:   brokerURL,
		Window:      window,

		Shell: ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// PrintJSON prints v as a JSON line.
func PrintJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// FormatInfo prints BridgeInfo into friendly string for display.
func FormatInfo(info BridgeInfo) string {
	var sb strings.Builder
	sb.WriteString(info.ID)
	if meta := info.Meta; meta != nil {
		if meta.Description != "" {
			fmt.Fprintf(&sb, ": %s", meta.Description)
		}
		if a, b := meta.Ports["a"], meta.Ports["b"]; a != "" || b != "" {
			fmt.Fprintf(&sb, " %s <-> %s", a, b)
		}
		if len(meta.ModePins) > 0 {
			fmt.Fprintf(&sb, " mode %v %s", meta.ModePins, meta.ModeLevel)
		}
	}
	return sb.String()
}

// FormatSnapshot prints a pump snapshot for display.
func FormatSnapshot(s stats.Snapshot) string {
	line := fmt.Sprintf("  %s: %d bytes in %d writes, %d reads (%d idle), errors r=%d w=%d",
		s.Name, s.Bytes, s.Writes, s.Reads, s.Timeouts, s.ReadErrors, s.WriteErrors)
	if !s.LastForward.IsZero() {
		line += ", last " + s.LastForward.Format(time.RFC3339)
	}
	if s.LastError != "" {
		line += ", last error: " + s.LastError
	}
	return line
}

// Collect listens for bridges with the shell settings.
func (s *Shell) Collect(topics ...string) ([]BridgeInfo, error) {
	return Collect(context.Background(), s.BrokerURL, s.Window, topics...)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists local serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"p"},
		Help:    "list local serial ports",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := bugst.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if ports == nil {
					ports = []string{}
				}
				PrintJSON(c, ports)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// BridgesCmd discovers bridges by their retained meta.
	BridgesCmd = ishell.Cmd{
		Name:    "bridges",
		Aliases: []string{"list", "l"},
		Help:    "discover bridges",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			bridges, err := s.Collect("+/meta")
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				PrintJSON(c, bridges)
				return
			}
			if len(bridges) == 0 {
				c.Println("No bridges found")
				return
			}
			for _, info := range bridges {
				c.Println(FormatInfo(info))
			}
		},
	}

	// StatusCmd collects status reports.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "[ID] collect forwarding counters",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			id := "+"
			if len(c.Args) > 0 {
				id = c.Args[0]
			}
			bridges, err := s.Collect(id+"/meta", id+"/status")
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				PrintJSON(c, bridges)
				return
			}
			if len(bridges) == 0 {
				c.Println("No status received")
				return
			}
			for _, info := range bridges {
				c.Println(FormatInfo(info))
				if len(info.Status) == 0 {
					c.Println("  no status within", s.Window)
				}
				for _, snapshot := range info.Status {
					c.Println(FormatSnapshot(snapshot))
				}
			}
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
