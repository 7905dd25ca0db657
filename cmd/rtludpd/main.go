// Command rtludpd opens an RTL2832U dongle and serves only the UDP
// side-channel text control protocol, without starting the TCP
// streaming server. It is useful for low-level register poking and
// IF/bandwidth experiments on an R820T/R828D tuner without also pulling
// I/Q samples.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/google/gousb"

	"github.com/ehelgesen1/librtlsdr/helpers/parse"
	"github.com/ehelgesen1/librtlsdr/rtl"
	"github.com/ehelgesen1/librtlsdr/rtludp"
	"github.com/ehelgesen1/librtlsdr/session"
)

func rtludpd() error {
	flags := flag.NewFlagSet("rtludpd", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: rtludpd [FLAGS]

rtludpd opens the first available RTL2832U device with an R820T or R828D
tuner and serves the ASCII UDP register-control protocol against it.

Flags:
`,
		))
		flags.PrintDefaults()
	}
	addrOpt := flags.String("addr", "0.0.0.0:1235", "UDP listen address")
	freqOpt := flags.String("f", "100M", "Initial tuner center frequency")
	rateOpt := flags.String("s", "2.048M", "Initial sample rate")

	_ = flags.Parse(os.Args[1:])
	if flags.NArg() != 0 {
		flags.Usage()
		return fmt.Errorf("unexpected arguments: %v", flags.Args())
	}

	freq, err := parse.ParseTuneFrequency(*freqOpt)
	if err != nil {
		return fmt.Errorf("invalid -f: %w", err)
	}
	rate, err := parse.ParseSampleRate(*rateOpt)
	if err != nil {
		return fmt.Errorf("invalid -s: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt)
		if _, ok := <-sig; ok {
			log.Println("signal received, shutting down")
			cancel()
		}
	}()

	sess, err := session.NewSession(
		session.WithSelector(session.WithNoopDevFilter()),
		session.WithDeviceConfig(
			session.WithSampleRate(uint32(rate)),
			session.WithCenterFreq(uint32(freq)),
			session.RequireTuner(rtl.TunerR820T, rtl.TunerR828D),
		),
		session.WithControlLoop(func(ctx context.Context, d *rtl.Device, usb *gousb.Device) error {
			ctrl, err := rtludp.NewController(d)
			if err != nil {
				return err
			}
			srv := &rtludp.Server{Addr: *addrOpt, Controller: ctrl}
			log.Printf("serving UDP control on %s (tuner=%v)", *addrOpt, d.TunerType())
			return srv.ListenAndServe(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("session setup: %w", err)
	}

	switch err := sess.Run(ctx); err {
	case nil, context.Canceled:
		log.Println("clean exit")
		return nil
	default:
		return err
	}
}

func main() {
	if err := rtludpd(); err != nil {
		log.Fatal(err)
	}
}
