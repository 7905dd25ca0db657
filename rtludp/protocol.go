package rtludp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ehelgesen1/librtlsdr/helpers/parse"
	"github.com/ehelgesen1/librtlsdr/rtl"
)

// r820tFilterReg is the R82xx register whose contents set the baseband
// filter corner. A retune's IF realignment can perturb it, so a
// Controller reads it before every center-frequency change and restores
// it afterward.
const r820tFilterReg = 27

// maxLineLen bounds an incoming UDP command line.
const maxLineLen = 100

// Controller parses and executes ASCII UDP control commands against one
// open rtl.Device. It must only be constructed for an R820T or R828D
// tuner; the UDP side channel is scoped to those variants since
// register 27's filter-corner layout is tuner-specific.
type Controller struct {
	Dev *rtl.Device
}

// NewController binds a Controller to dev, rejecting any tuner other
// than R820T/R828D.
func NewController(dev *rtl.Device) (*Controller, error) {
	switch dev.TunerType() {
	case rtl.TunerR820T, rtl.TunerR828D:
	default:
		return nil, fmt.Errorf("rtludp: controller requires R820T or R828D tuner, got %s", dev.TunerType())
	}
	return &Controller{Dev: dev}, nil
}

// Handle parses and executes a single command line, returning the
// framed response: "! <value>\n" on success or "?\n" on any parse or
// execution failure. It never returns an error itself; failures are
// reported only through the response framing, matching the wire
// protocol's single-line reply contract.
func (c *Controller) Handle(ctx context.Context, line string) string {
	if len(line) > maxLineLen {
		return "?\n"
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "?\n"
	}

	v, err := c.dispatch(ctx, fields[0], fields[1:])
	if err != nil {
		return "?\n"
	}
	return fmt.Sprintf("! %s\n", v)
}

func (c *Controller) dispatch(ctx context.Context, cmd string, args []string) (string, error) {
	d := c.Dev
	switch cmd {
	case "g":
		reg, err := arg(args, 0)
		if err != nil {
			return "", err
		}
		val, err := d.GetTunerI2CRegister(ctx, uint8(reg))
		if err != nil {
			return "", err
		}
		return strconv.Itoa(int(val)), nil

	case "s", "S":
		reg, err := arg(args, 0)
		if err != nil {
			return "", err
		}
		val, err := arg(args, 1)
		if err != nil {
			return "", err
		}
		mask := int64(0xff)
		if len(args) > 2 {
			if mask, err = parse.ParseNumber(args[2]); err != nil {
				return "", err
			}
		}
		if cmd == "S" {
			err = d.SetTunerI2COverride(ctx, uint8(reg), uint8(val), uint8(mask))
		} else {
			err = d.SetTunerI2CRegister(ctx, uint8(reg), uint8(val), uint8(mask))
		}
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(val, 10), nil

	case "i", "I":
		freq, err := freqArg(args, 0)
		if err != nil {
			return "", err
		}
		if err := d.SetIFFreq(ctx, int64(freq)); err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(freq), 10), nil

	case "f":
		freq, err := freqArg(args, 0)
		if err != nil {
			return "", err
		}
		preserved, perr := d.GetTunerI2CRegister(ctx, r820tFilterReg)
		if err := d.SetCenterFreq(ctx, freq); err != nil {
			return "", err
		}
		if perr == nil {
			_ = d.SetTunerI2CRegister(ctx, r820tFilterReg, preserved, 0xff)
		}
		return strconv.FormatUint(uint64(freq), 10), nil

	case "b":
		bw, err := freqArg(args, 0)
		if err != nil {
			return "", err
		}
		if err := d.SetTunerBandwidth(ctx, bw); err != nil {
			return "", err
		}
		return strconv.FormatUint(uint64(bw), 10), nil

	case "c":
		off, err := arg(args, 0)
		if err != nil {
			return "", err
		}
		if err := d.SetBWCenter(ctx, int32(off)); err != nil {
			return "", err
		}
		return strconv.FormatInt(off, 10), nil

	case "a":
		variant, err := arg(args, 0)
		if err != nil {
			return "", err
		}
		mode := rtl.AGCMode(variant)
		d.SetAGCMode(mode)
		return strconv.FormatInt(variant, 10), nil

	case "m":
		gain, err := arg(args, 0)
		if err != nil {
			return "", err
		}
		if err := d.SetTunerGain(ctx, int32(gain)); err != nil {
			return "", err
		}
		return strconv.FormatInt(gain, 10), nil

	case "M":
		mode, err := arg(args, 0)
		if err != nil {
			return "", err
		}
		if err := d.SetTunerGainMode(ctx, mode != 0); err != nil {
			return "", err
		}
		return strconv.FormatInt(mode, 10), nil

	case "h":
		return helpText, nil

	default:
		return "", fmt.Errorf("rtludp: unknown command %q", cmd)
	}
}

func arg(args []string, i int) (int64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("rtludp: missing argument %d", i)
	}
	return parse.ParseNumber(args[i])
}

func freqArg(args []string, i int) (uint32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("rtludp: missing argument %d", i)
	}
	return parse.ParseUDPFrequency(args[i])
}

const helpText = "g,s,S,i,I,f,b,c,a,m,M,h"
