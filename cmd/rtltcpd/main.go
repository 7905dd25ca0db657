// Command rtltcpd opens an RTL2832U dongle and serves it over the
// rtl_tcp-compatible streaming protocol. It optionally also starts the
// UDP side-channel controller against the same open device.
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
	"github.com/ehelgesen1/librtlsdr/rtltcp"
	"github.com/ehelgesen1/librtlsdr/rtludp"
	"github.com/ehelgesen1/librtlsdr/session"
)

func rtltcpd() error {
	flags := flag.NewFlagSet("rtltcpd", flag.ExitOnError)
	flags.Usage = func() {
		fmt.Fprintln(flags.Output(), strings.TrimSpace(`
Usage: rtltcpd [FLAGS]

rtltcpd opens the first available RTL2832U device, configures it, and
serves it to a single TCP client using the rtl_tcp-compatible protocol.

Flags:
`,
		))
		flags.PrintDefaults()
	}
	addrOpt := flags.String("addr", "0.0.0.0:1234", "TCP listen address")
	udpAddrOpt := flags.String("udp", "", strings.TrimSpace(`
UDP side-channel listen address (e.g. "0.0.0.0:1235"). Empty disables
the UDP side channel. Only usable when the bound tuner is R820T/R828D.`,
	))
	freqOpt := flags.String("f", "100M", "Initial tuner center frequency")
	rateOpt := flags.String("s", "2.048M", "Initial sample rate")
	gainOpt := flags.Int("g", 0, "Initial manual tuner gain in tenths of a dB (ignored if -agc)")
	agcOpt := flags.Bool("agc", true, "Enable tuner automatic gain control")
	ppmOpt := flags.Int("p", 0, "Frequency correction in parts per million")
	queueOpt := flags.Int("qbound", 0, "Producer/consumer queue bound (0 selects the default)")
	bufLenOpt := flags.String("buflen", "0", "USB transfer buffer size in bytes, k/M suffix allowed (0 selects the default)")
	bufNumOpt := flags.Int("bufnum", 0, "Number of USB transfer descriptors (0 selects the default)")

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
	bufLen, err := parse.SizeInBytes(*bufLenOpt)
	if err != nil {
		return fmt.Errorf("invalid -buflen: %w", err)
	}

	gainCfg := session.WithAutoGain()
	if !*agcOpt {
		gainCfg = session.WithTunerGain(int32(*gainOpt))
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
			session.WithFreqCorrection(int32(*ppmOpt)),
			session.WithSampleRate(uint32(rate)),
			session.WithCenterFreq(uint32(freq)),
			gainCfg,
		),
		session.WithControlLoop(func(ctx context.Context, d *rtl.Device, usb *gousb.Device) error {
			log.Printf("tuner=%v freq=%d rate=%d gains=%d", d.TunerType(), d.GetCenterFreq(), d.GetSampleRate(), len(d.GainTable()))

			tcpSrv := &rtltcp.Server{
				Addr:       *addrOpt,
				Dev:        d,
				USB:        usb,
				QueueBound: *queueOpt,
				BufLen:     int(bufLen),
				BufNum:     *bufNumOpt,
			}

			errCh := make(chan error, 2)
			go func() {
				errCh <- tcpSrv.ListenAndServe(ctx)
			}()

			if *udpAddrOpt != "" {
				ctrl, err := rtludp.NewController(d)
				if err != nil {
					log.Printf("udp side channel disabled: %v", err)
				} else {
					udpSrv := &rtludp.Server{Addr: *udpAddrOpt, Controller: ctrl}
					go func() {
						errCh <- udpSrv.ListenAndServe(ctx)
					}()
				}
			}

			err := <-errCh
			if err != nil && ctx.Err() == nil {
				return err
			}
			<-ctx.Done()
			return ctx.Err()
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
	if err := rtltcpd(); err != nil {
		log.Fatal(err)
	}
}
