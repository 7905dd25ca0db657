// Command rtldetect prints the list of available RTL2832U devices.
//
// For each device found at one of the known vendor/product ID pairs, it
// prints the USB bus and address, the matched dongle name (if any), and,
// after a full device open, the probed tuner type and its discrete gain
// step count.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/gousb"

	"github.com/ehelgesen1/librtlsdr/rtl"
	"github.com/ehelgesen1/librtlsdr/session"
)

func rtldetect() error {
	flags := flag.NewFlagSet("rtldetect", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: rtldetect [FLAGS]

rtldetect prints the bus address, dongle name, tuner type, and gain step
count of every RTL2832U device currently attached.

Flags:
`,
		))
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])
	if flags.NArg() != 0 {
		flags.Usage()
		return fmt.Errorf("too many arguments")
	}

	ctx := context.Background()
	usbCtx := gousb.NewContext()
	defer usbCtx.Close()

	var found int
	for _, kd := range session.KnownDongles() {
		dev, err := usbCtx.OpenDeviceWithVIDPID(kd.VID, kd.PID)
		if err != nil {
			return fmt.Errorf("probe %v:%v: %w", kd.VID, kd.PID, err)
		}
		if dev == nil {
			continue
		}
		found++
		fmt.Printf("bus=%d addr=%d vid=%v pid=%v name=%q\n",
			dev.Desc.Bus, dev.Desc.Address, kd.VID, kd.PID, kd.Name)

		if _, err := dev.Config(1); err != nil {
			fmt.Fprintf(os.Stderr, "  set config: %v\n", err)
			_ = dev.Close()
			continue
		}
		bus := rtl.NewRegBus(dev)
		rtlDev, err := rtl.Open(ctx, bus)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  open: %v\n", err)
			_ = dev.Close()
			continue
		}
		fmt.Printf("  tuner=%v gains=%d\n", rtlDev.TunerType(), len(rtlDev.GainTable()))
		if err := rtlDev.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "  close: %v\n", err)
		}
		_ = dev.Close()
	}

	if found == 0 {
		fmt.Println("no RTL2832U devices found")
	}
	return nil
}

func main() {
	if err := rtldetect(); err != nil {
		log.Fatal(err)
	}
}
