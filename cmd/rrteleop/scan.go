package main

import (
	"context"
	"fmt"

	"github.com/gwillem/rrteleop/pkg/robot"
)

type ScanCommand struct {
	MaxID int `long:"max-id" default:"10" description:"Highest servo ID to probe"`
}

func (c *ScanCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Serial ports"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))

	ports, err := robot.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	ctx := context.Background()
	for _, port := range ports {
		servos, err := robot.Scan(ctx, port, c.MaxID)
		if err != nil {
			fmt.Printf("  %s %s\n", port, dimStyle.Render("(no servos)"))
			continue
		}
		label := ""
		if robot.HasJoystick(servos) {
			label = successStyle.Render(" joystick")
		}
		fmt.Printf("  %s%s\n", port, label)
		for _, s := range servos {
			fmt.Printf("    ID %d  model %v\n", s.ID, s.Model)
		}
	}
	return nil
}
