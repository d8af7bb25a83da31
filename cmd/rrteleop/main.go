package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config   string `long:"config" short:"c" default:"rrteleop.yaml" description:"Configuration file"`
	LogLevel string `long:"log-level" description:"Override logging.level (debug, info, warn, error)"`

	Setup       SetupCommand       `command:"setup" description:"Choose an input device, calibrate it and write the configuration"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Run the control loop with a live terminal view"`
	Simulate    SimulateCommand    `command:"simulate" alias:"sim" description:"Run headless with a constant Cartesian velocity and store the trace"`
	Runs        RunsCommand        `command:"runs" description:"List stored traces"`
	Plot        PlotCommand        `command:"plot" description:"Plot a stored trace"`
	Scan        ScanCommand        `command:"scan" description:"List serial ports and the servos on them"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "rrteleop - Cartesian velocity teleoperation of a planar RR arm"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
