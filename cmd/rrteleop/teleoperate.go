package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/rrteleop/pkg/config"
	"github.com/gwillem/rrteleop/pkg/device"
	rrlog "github.com/gwillem/rrteleop/pkg/log"
	"github.com/gwillem/rrteleop/pkg/record"
	"github.com/gwillem/rrteleop/pkg/server"
	"github.com/gwillem/rrteleop/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz     int     `long:"hz" description:"Override loop.hz"`
	Scale  float64 `long:"scale" description:"Override loop.velocity_scale"`
	FPS    int     `long:"fps" default:"30" description:"Display refresh rate"`
	Serve  bool    `long:"serve" description:"Serve state over HTTP/websocket on server.addr"`
	Record bool    `long:"record" description:"Store the session trace in record.dir"`
}

const (
	headerHeight = 4 // title + status + pose + blank
	legendHeight = 2
	footerHeight = 7 // log box height
	maxLogs      = 5
	borderSize   = 2
)

// joint colors by index
var jointColors = []string{"196", "46", "51", "226", "208", "201"}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func jointColor(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[i%len(jointColors)]))
}

type teleopModel struct {
	session  *teleop.Session
	logCh    <-chan string
	device   string
	fps      int
	posChart *streamlinechart.Model
	velChart *streamlinechart.Model
	width    int
	height   int
	logs     []string
	quitting bool
	snap     teleop.Snapshot
	lastTick uint64
	lastPos  []float64
}

type frameMsg time.Time
type logMsg string

func nextFrame(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitForLog(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-ch)
	}
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// hasMovement reports whether any joint moved since the last drawn frame.
func (m *teleopModel) hasMovement(q []float64) bool {
	if m.lastPos == nil || len(q) != len(m.lastPos) {
		return true
	}
	for i := range q {
		if q[i] != m.lastPos[i] {
			return true
		}
	}
	return false
}

func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 10
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = (m.height - headerHeight - legendHeight - footerHeight - 2*borderSize) / 2
	if height < 5 {
		height = 5
	}
	return width, height
}

func (m *teleopModel) resizeCharts() {
	w, h := m.chartSize()
	m.posChart.Resize(w, h)
	m.velChart.Resize(w, h)
}

func newTeleopModel(s *teleop.Session, logCh <-chan string, dev string, fps int, maxJointSpeed float64) teleopModel {
	if maxJointSpeed <= 0 {
		maxJointSpeed = 10
	}
	pos := streamlinechart.New(80, 10, streamlinechart.WithYRange(-180, 180))
	vel := streamlinechart.New(80, 10, streamlinechart.WithYRange(-maxJointSpeed, maxJointSpeed))
	for i := 0; i < s.Chain().DOF(); i++ {
		name := fmt.Sprintf("q%d", i)
		pos.SetDataSetStyles(name, runes.ThinLineStyle, jointColor(i))
		vel.SetDataSetStyles(name, runes.ThinLineStyle, jointColor(i))
	}
	snap, _ := s.Snapshot()
	return teleopModel{
		session:  s,
		logCh:    logCh,
		device:   dev,
		fps:      fps,
		posChart: &pos,
		velChart: &vel,
		snap:     snap,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(nextFrame(m.fps), waitForLog(m.logCh))
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeCharts()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case frameMsg:
		snap, ok := m.session.Snapshot()
		if ok && snap.Tick != m.lastTick {
			m.snap = snap
			m.lastTick = snap.Tick
			// freeze the charts while the arm is idle
			if m.hasMovement(snap.Position) {
				for i, q := range snap.Position {
					name := fmt.Sprintf("q%d", i)
					m.posChart.PushDataSet(name, wrapDegrees(q))
					m.velChart.PushDataSet(name, snap.Velocity[i])
				}
				m.posChart.DrawAll()
				m.velChart.DrawAll()
				m.lastPos = snap.Position
			}
		}
		return m, nextFrame(m.fps)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.logCh)
	}

	return m, nil
}

func wrapDegrees(rad float64) float64 {
	return math.Remainder(rad, 2*math.Pi) * 180 / math.Pi
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder
	st := m.session.Stats()

	sb.WriteString(titleStyle.Render("rrteleop"))
	sb.WriteString(fmt.Sprintf(" - %d Hz - %s", m.session.Hz(), m.device))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(fmt.Sprintf("tick %d  t=%.2fs  underflows %d  device reads %d errors %d",
		st.Ticks, m.snap.Time, st.Underflows, st.DeviceReads, st.DeviceErrors)))
	sb.WriteString("\n")
	pose := fmt.Sprintf("tip (%.3f, %.3f)  phi %.1f°  cmd (%.2f, %.2f)  w=%.3f",
		m.snap.Pose.X, m.snap.Pose.Y, wrapDegrees(m.snap.Pose.Phi), m.snap.Input.X, m.snap.Input.Y, m.snap.Manipulability)
	if m.snap.Damped {
		pose += warnStyle.Render("  damped")
	}
	if m.snap.Clamped {
		pose += warnStyle.Render("  clamped")
	}
	sb.WriteString(pose)
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.posChart.View()))
	sb.WriteString("\n")
	sb.WriteString(chartStyle.Render(m.velChart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend(len(m.snap.Position)))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend(n int) string {
	items := []string{statusStyle.Render("top: angle [deg]  bottom: velocity [rad/s]")}
	for i := 0; i < n; i++ {
		items = append(items, jointColor(i).Bold(true).Render("━━")+fmt.Sprintf(" q%d", i))
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, found, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Hz > 0 {
		cfg.Loop.Hz = c.Hz
	}
	if c.Scale > 0 {
		cfg.Loop.VelocityScale = c.Scale
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.FPS <= 0 {
		c.FPS = 30
	}
	if found {
		fmt.Printf("Loaded configuration from %s\n", opts.Config)
	} else {
		fmt.Printf("No configuration at %s, using defaults. Run 'rrteleop setup' to choose a device.\n", opts.Config)
	}

	// the TUI owns the terminal, so log lines go to the file and the log box
	hook := rrlog.NewChannelHook(10, logrus.InfoLevel)
	logger, err := newLogger(cfg, nil, rrlog.WithHook(hook))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev, err := openDevice(ctx, cfg.Device, logger)
	if err != nil {
		return err
	}
	if dev != nil {
		defer dev.Close()
	}

	sessionOpts := []teleop.Option{teleop.WithLogger(logger)}
	var rec *record.Recorder
	if c.Record {
		rec = record.NewRecorder(cfg.Record.Every, 0)
		sessionOpts = append(sessionOpts, teleop.WithObserver(rec))
	}

	session, err := teleop.NewSession(cfg.Session(), dev, sessionOpts...)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	var srv *server.Server
	twist, _ := dev.(*device.Twist)
	if c.Serve || twist != nil {
		srv = server.New(session, twist, cfg.Server.FPS, logger.WithField("component", "server"))
		go func() {
			if err := srv.Listen(cfg.Server.Addr); err != nil {
				logger.Errorf("Server error: %v", err)
			}
		}()
	}

	if err := session.Start(ctx); err != nil {
		return err
	}

	p := tea.NewProgram(newTeleopModel(session, hook.Messages(), device.Describe(cfg.Device), c.FPS, cfg.Mapper.MaxJointSpeed),
		tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := p.Run()

	session.Stop()
	if err := session.Wait(); err != nil {
		return err
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Server shutdown: %v", err)
		}
	}
	if rec != nil {
		if err := saveRecording(cfg, "teleoperate", session, rec); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("run terminal view: %w", runErr)
	}

	st := session.Stats()
	fmt.Printf("Stopped after %d ticks (%d underflows)\n", st.Ticks, st.Underflows)
	return nil
}

func saveRecording(cfg *config.Config, kind string, session *teleop.Session, rec *record.Recorder) error {
	store := record.NewStore(cfg.Record.Dir)
	if err := store.Init(); err != nil {
		return fmt.Errorf("init run store: %w", err)
	}
	st := session.Stats()
	samples := rec.Samples()
	duration := 0.0
	if len(samples) > 0 {
		duration = samples[len(samples)-1].Time
	}
	id, err := store.Save(record.Metadata{
		Kind:       kind,
		Hz:         session.Hz(),
		Duration:   duration,
		Ticks:      st.Ticks,
		Underflows: st.Underflows,
		Device:     device.Describe(cfg.Device),
		Links:      session.Chain().Links(),
		Initial:    cfg.InitialRadians(),
	}, samples)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("Saved %d samples as run %s\n", len(samples), id)
	return nil
}
