package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/rrteleop/pkg/config"
	"github.com/gwillem/rrteleop/pkg/kinematics"
	"github.com/gwillem/rrteleop/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct{}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("rrteleop setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg, found, err := loadConfig()
	if err != nil {
		return err
	}
	if found {
		fmt.Printf("Editing %s\n\n", opts.Config)
	}

	if err := askArm(cfg); err != nil {
		return err
	}

	kind := cfg.Device.Kind
	if kind == "" {
		kind = config.DeviceNone
	}
	err = huh.NewSelect[string]().
		Title("Input device").
		Options(
			huh.NewOption("None (arm holds still)", config.DeviceNone),
			huh.NewOption("Serial line (\"vx vy [vz]\" per line)", config.DeviceSerial),
			huh.NewOption("Servo joystick (two passive STS servos)", config.DeviceServo),
			huh.NewOption("Websocket (/ws/control twist messages)", config.DeviceWebsocket),
			huh.NewOption("Constant velocity", config.DeviceConstant),
		).
		Value(&kind).
		Run()
	if err != nil {
		return err
	}
	cfg.Device.Kind = kind

	switch kind {
	case config.DeviceSerial:
		err = askSerial(&cfg.Device)
	case config.DeviceServo:
		err = setupServo(&cfg.Device)
	case config.DeviceConstant:
		err = askConstant(&cfg.Device)
	}
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start teleoperation with: " + headerStyle.Render("rrteleop teleoperate"))
	return nil
}

func validateFloat(positive bool) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("not a number")
		}
		if positive && v <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// askArm edits a two-link arm. Longer chains are kept as configured.
func askArm(cfg *config.Config) error {
	if len(cfg.Arm.Links) != 2 || len(cfg.Arm.InitialDeg) != 2 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("Keeping configured %d-link arm", len(cfg.Arm.Links))))
		return nil
	}
	l1 := formatFloat(cfg.Arm.Links[0].Length)
	l2 := formatFloat(cfg.Arm.Links[1].Length)
	q1 := formatFloat(cfg.Arm.InitialDeg[0])
	q2 := formatFloat(cfg.Arm.InitialDeg[1])

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Link 1 length [m]").Value(&l1).Validate(validateFloat(true)),
			huh.NewInput().Title("Link 2 length [m]").Value(&l2).Validate(validateFloat(true)),
			huh.NewInput().Title("Initial joint 1 angle [deg]").Value(&q1).Validate(validateFloat(false)),
			huh.NewInput().Title("Initial joint 2 angle [deg]").
				Description("0 is fully stretched, which is singular").
				Value(&q2).Validate(validateFloat(false)),
		).Title(subHeaderStyle.Render("Arm")),
	)
	if err := form.Run(); err != nil {
		return err
	}
	cfg.Arm.Links = []kinematics.Link{{Length: parseFloat(l1)}, {Length: parseFloat(l2)}}
	cfg.Arm.InitialDeg = []float64{parseFloat(q1), parseFloat(q2)}
	return nil
}

func askSerial(dc *config.DeviceConfig) error {
	ports, err := robot.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		return fmt.Errorf("no serial ports found")
	}
	options := make([]huh.Option[string], 0, len(ports))
	for _, p := range ports {
		options = append(options, huh.NewOption(p, p))
	}
	if dc.Port == "" {
		dc.Port = ports[0]
	}
	baud := strconv.Itoa(dc.BaudRate)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Serial port").Options(options...).Value(&dc.Port),
			huh.NewInput().Title("Baud rate").Value(&baud).Validate(func(s string) error {
				if n, err := strconv.Atoi(s); err != nil || n <= 0 {
					return fmt.Errorf("must be a positive integer")
				}
				return nil
			}),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	dc.BaudRate, _ = strconv.Atoi(baud)
	return nil
}

func askConstant(dc *config.DeviceConfig) error {
	vx := formatFloat(dc.Velocity.X)
	vy := formatFloat(dc.Velocity.Y)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("vx [m/s]").Value(&vx).Validate(validateFloat(false)),
			huh.NewInput().Title("vy [m/s]").Value(&vy).Validate(validateFloat(false)),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	dc.Velocity = kinematics.Vec3{X: parseFloat(vx), Y: parseFloat(vy)}
	return nil
}

func setupServo(dc *config.DeviceConfig) error {
	fmt.Println("Scanning for servo joysticks...")
	ports, err := robot.FindJoysticks(context.Background())
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No joystick found (needs servos with IDs 1 and 2).")
		fmt.Println("Make sure it is connected and powered on.")
		return fmt.Errorf("no joystick found")
	}

	dc.Port = ports[0]
	if len(ports) > 1 {
		options := make([]huh.Option[string], 0, len(ports))
		for _, p := range ports {
			options = append(options, huh.NewOption(p, p))
		}
		if err := huh.NewSelect[string]().Title("Joystick port").Options(options...).Value(&dc.Port).Run(); err != nil {
			return err
		}
	}
	dc.BaudRate = robot.BaudRate

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating joystick ━━━"))
	fmt.Println()
	cal, err := calibrateJoystick(dc.Port)
	if err != nil {
		return err
	}
	dc.Calibration = cal
	fmt.Println("Joystick calibrated.")
	return nil
}

func calibrateJoystick(port string) (robot.Calibration, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := robot.OpenBus(port, robot.BaudRate)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	found, err := bus.Scan(ctx, 1, 2)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", port, err)
	}
	if !robot.HasJoystick(found) {
		return nil, fmt.Errorf("no joystick on %s (expected servos 1 and 2)", port)
	}

	axes := robot.AllAxes()
	servos := make(map[robot.Axis]*feetech.Servo, len(axes))
	for _, s := range found {
		if s.ID >= 1 && s.ID <= len(axes) {
			servos[axes[s.ID-1]] = feetech.NewServo(bus, s.ID, s.Model)
		}
	}

	// release torque so the stick moves freely
	ctx = context.Background()
	for _, servo := range servos {
		servo.Disable(ctx)
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Leave the stick centered, then move it to the limits of both axes.")
	fmt.Println("The centered position when this screen opens is taken as rest.")
	fmt.Println()

	m := newCalibrationModel(axes, servos)
	for _, axis := range axes {
		pos, err := servos[axis].Position(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s axis: %w", axis, err)
		}
		m.rest[axis] = pos
		m.cur[axis] = pos
		m.min[axis] = pos
		m.max[axis] = pos
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)

	cal := make(robot.Calibration, len(axes))
	for i, axis := range axes {
		cal[axis] = robot.AxisCalibration{
			ID:       i + 1,
			Rest:     cm.rest[axis],
			RangeMin: cm.min[axis],
			RangeMax: cm.max[axis],
		}
	}
	return cal, nil
}

// Calibration TUI model
type calibrationModel struct {
	axes     []robot.Axis
	servos   map[robot.Axis]*feetech.Servo
	rest     map[robot.Axis]int
	cur      map[robot.Axis]int
	min      map[robot.Axis]int
	max      map[robot.Axis]int
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(axes []robot.Axis, servos map[robot.Axis]*feetech.Servo) calibrationModel {
	return calibrationModel{
		axes:   axes,
		servos: servos,
		rest:   make(map[robot.Axis]int),
		cur:    make(map[robot.Axis]int),
		min:    make(map[robot.Axis]int),
		max:    make(map[robot.Axis]int),
	}
}

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for _, axis := range m.axes {
			pos, err := m.servos[axis].Position(ctx)
			if err != nil {
				continue
			}
			m.cur[axis] = pos
			m.min[axis] = min(m.min[axis], pos)
			m.max[axis] = max(m.max[axis], pos)
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableAxisStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.axes))
	ranges := make([]int, 0, len(m.axes))
	for _, axis := range m.axes {
		size := m.max[axis] - m.min[axis]
		ranges = append(ranges, size)
		rows = append(rows, []string{
			string(axis),
			strconv.Itoa(m.cur[axis]),
			strconv.Itoa(m.rest[axis]),
			strconv.Itoa(m.min[axis]),
			strconv.Itoa(m.max[axis]),
			strconv.Itoa(size),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Axis", "Current", "Rest", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableAxisStyle
			case 1:
				return tableCurrentStyle
			case 5:
				// a usable stick sweeps well over a few hundred steps
				if row >= 0 && row < len(ranges) && ranges[row] > 300 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}
