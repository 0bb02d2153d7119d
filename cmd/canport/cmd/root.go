package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/canable/canport"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "canport",
	Short:        "slcan USB-to-CAN adapter tool",
	Long:         `Talk to CANable style adapters speaking the slcan line protocol`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

const (
	flagPort     = "port"
	flagBaudrate = "baudrate"
	flagCANRate  = "canrate"
	flagDebug    = "debug"
	flagAdapter  = "adapter"
	flagCompact  = "compact-ids"
)

func init() {
	log.SetFlags(log.Lshortfile | log.LstdFlags)

	pf := rootCmd.PersistentFlags()
	pf.StringP(flagPort, "p", "*", "com-port, * = pick among discovered adapters")
	pf.IntP(flagBaudrate, "b", canport.DefaultPortBaudrate, "serial baudrate")
	pf.IntP(flagCANRate, "c", canport.DefaultCANRate, "CAN bit rate in bit/s, one of "+bitrateList())
	pf.BoolP(flagDebug, "d", false, "debug mode")
	pf.Bool(flagCompact, false, "adapter sends 11 bit ids as three hex digits")
	pf.StringP(flagAdapter, "a", "SLCan", "adapter, one of "+strings.Join(canport.ListAdapterNames(), ", "))
}

func bitrateList() string {
	var out []string
	for _, r := range canport.Bitrates() {
		out = append(out, strconv.Itoa(r))
	}
	return strings.Join(out, ", ")
}

func adapterConfig(cmd *cobra.Command) (string, *canport.AdapterConfig, error) {
	pf := cmd.Flags()
	port, err := pf.GetString(flagPort)
	if err != nil {
		return "", nil, err
	}
	baudrate, err := pf.GetInt(flagBaudrate)
	if err != nil {
		return "", nil, err
	}
	canrate, err := pf.GetInt(flagCANRate)
	if err != nil {
		return "", nil, err
	}
	debug, err := pf.GetBool(flagDebug)
	if err != nil {
		return "", nil, err
	}
	compact, err := pf.GetBool(flagCompact)
	if err != nil {
		return "", nil, err
	}
	adapterName, err := pf.GetString(flagAdapter)
	if err != nil {
		return "", nil, err
	}
	return adapterName, &canport.AdapterConfig{
		Debug:        debug,
		Port:         port,
		PortBaudrate: baudrate,
		CANRate:      canrate,
		PrintVersion: debug,
		CompactIDs:   compact,
		OnMessage: func(msg string) {
			log.Println(msg)
		},
		OnError: func(err error) {
			log.Printf("adapter error: %v", err)
		},
	}, nil
}

func initCAN(cmd *cobra.Command) (*canport.Client, error) {
	adapterName, cfg, err := adapterConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Port == "*" && adapterName == "SLCan" {
		port, err := selectPort()
		if err != nil {
			return nil, err
		}
		cfg.Port = port
	}
	dev, err := canport.NewAdapter(adapterName, cfg)
	if err != nil {
		return nil, err
	}
	return canport.New(cmd.Context(), dev)
}

func selectPort() (string, error) {
	ports, err := canport.ListPorts(false)
	if err != nil {
		return "", err
	}
	switch len(ports) {
	case 0:
		return "", errors.New("no adapter found, use --port to name the serial port")
	case 1:
		return ports[0].Name, nil
	}
	items := make([]string, len(ports))
	for i, p := range ports {
		items[i] = fmt.Sprintf("%s (%s)", p.Name, p.SerialNumber)
	}
	prompt := promptui.Select{
		Label:    "Select adapter",
		HideHelp: true,
		Items:    items,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return ports[idx].Name, nil
}

// parseID parses a hex identifier with an optional 0x prefix.
func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q: %w", s, err)
	}
	return uint32(id), nil
}

// parseFrameArgs parses "<id> [hexdata]".
func parseFrameArgs(args []string, extended bool) (*canport.CANFrame, error) {
	id, err := parseID(args[0])
	if err != nil {
		return nil, err
	}
	var data []byte
	if len(args) > 1 {
		data, err = hexArg(args[1])
		if err != nil {
			return nil, err
		}
	}
	var f *canport.CANFrame
	if extended {
		f = canport.NewExtendedFrame(id, data, canport.Outgoing)
	} else {
		f = canport.NewFrame(id, data, canport.Outgoing)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
