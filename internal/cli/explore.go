package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/matzehuels/canopy/pkg/controller"
	"github.com/matzehuels/canopy/pkg/layout"
	"github.com/matzehuels/canopy/pkg/pipeline"
	"github.com/matzehuels/canopy/pkg/render"
	"github.com/matzehuels/canopy/pkg/tree"
	"github.com/matzehuels/canopy/pkg/view"
)

// Terminal cells are mapped to layout units so the controller's viewport
// follows the window.
const (
	cellWidth  = 8.0
	cellHeight = 16.0
)

// zoomStep is the factor applied by one +/- key press.
const zoomStep = 1.25

// panStep is the distance, in viewport units, of one pan key press.
const panStep = 40.0

// Tree outline styles
var (
	outlineSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	outlineNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	outlineLeafStyle     = lipgloss.NewStyle().Foreground(colorGray)
	outlineDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	outlineEnteredStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	outlineErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// Key Bindings
// =============================================================================

type exploreKeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Recenter    key.Binding
	ZoomIn      key.Binding
	ZoomOut     key.Binding
	PanLeft     key.Binding
	PanRight    key.Binding
	PanUp       key.Binding
	PanDown     key.Binding
	Quit        key.Binding
}

var exploreKeys = exploreKeyMap{
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
	ExpandAll:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand all")),
	CollapseAll: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse all")),
	Recenter:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recenter")),
	ZoomIn:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
	ZoomOut:     key.NewBinding(key.WithKeys("-", "_")),
	PanLeft:     key.NewBinding(key.WithKeys("shift+left", "H"), key.WithHelp("H/J/K/L", "pan")),
	PanRight:    key.NewBinding(key.WithKeys("shift+right", "L")),
	PanUp:       key.NewBinding(key.WithKeys("shift+up", "K")),
	PanDown:     key.NewBinding(key.WithKeys("shift+down", "J")),
	Quit:        key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k exploreKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.ExpandAll, k.CollapseAll, k.Recenter, k.ZoomIn, k.PanLeft, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k exploreKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.ExpandAll, k.CollapseAll, k.Recenter},
		{k.ZoomIn, k.ZoomOut, k.PanLeft, k.PanRight, k.PanUp, k.PanDown},
		{k.Quit},
	}
}

// =============================================================================
// ExploreModel - Interactive tree browser
// =============================================================================

// ExploreModel is the bubbletea model of the explore command. Every key press
// is applied to the controller synchronously; the outline shows the nodes of
// the latest snapshot in pre-order.
type ExploreModel struct {
	ctx   context.Context
	ctrl  *controller.Controller
	frame render.Frame
	help  help.Model

	// selected survives re-layouts; cursor is its row in the outline.
	selected tree.ID
	cursor   int
	offset   int
	width    int
	height   int
	err      error
}

// NewExploreModel wraps a started controller.
func NewExploreModel(ctx context.Context, ctrl *controller.Controller, first render.Frame) ExploreModel {
	m := ExploreModel{
		ctx:    ctx,
		ctrl:   ctrl,
		frame:  first,
		help:   help.New(),
		width:  80,
		height: 24,
	}
	if root := ctrl.Tree().Root(); root != nil {
		m.selected = root.ID()
	}
	return m
}

// Init implements tea.Model.
func (m ExploreModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.apply(m.ctrl.Resize(m.ctx, float64(msg.Width)*cellWidth, float64(m.outlineHeight())*cellHeight))
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, exploreKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, exploreKeys.Up):
			m.move(-1)
		case key.Matches(msg, exploreKeys.Down):
			m.move(1)
		case key.Matches(msg, exploreKeys.Toggle):
			m.apply(m.ctrl.Click(m.ctx, m.selected))
		case key.Matches(msg, exploreKeys.ExpandAll):
			m.apply(m.ctrl.ExpandAll(m.ctx))
		case key.Matches(msg, exploreKeys.CollapseAll):
			m.apply(m.ctrl.CollapseAll(m.ctx))
		case key.Matches(msg, exploreKeys.Recenter):
			m.apply(m.ctrl.Recenter(m.ctx))
		case key.Matches(msg, exploreKeys.ZoomIn):
			m.apply(m.ctrl.Zoom(m.ctx, zoomStep, m.ctrl.Viewport().Center()))
		case key.Matches(msg, exploreKeys.ZoomOut):
			m.apply(m.ctrl.Zoom(m.ctx, 1/zoomStep, m.ctrl.Viewport().Center()))
		case key.Matches(msg, exploreKeys.PanLeft):
			m.apply(m.ctrl.Pan(m.ctx, -panStep, 0))
		case key.Matches(msg, exploreKeys.PanRight):
			m.apply(m.ctrl.Pan(m.ctx, panStep, 0))
		case key.Matches(msg, exploreKeys.PanUp):
			m.apply(m.ctrl.Pan(m.ctx, 0, -panStep))
		case key.Matches(msg, exploreKeys.PanDown):
			m.apply(m.ctrl.Pan(m.ctx, 0, panStep))
		}
	}
	return m, nil
}

// apply records the outcome of one controller interaction and keeps the
// cursor on the selected node, or on the node that caused the change when
// the selection was hidden.
func (m *ExploreModel) apply(f render.Frame, err error) {
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.frame = f

	rows := m.rows()
	if i := indexOf(rows, m.selected); i >= 0 {
		m.cursor = i
	} else if i := indexOf(rows, f.Source); i >= 0 {
		m.cursor, m.selected = i, f.Source
	} else if len(rows) > 0 {
		m.cursor, m.selected = 0, rows[0].ID
	}
	m.scroll()
}

func (m *ExploreModel) move(delta int) {
	rows := m.rows()
	if len(rows) == 0 {
		return
	}
	m.cursor = max(0, min(len(rows)-1, m.cursor+delta))
	m.selected = rows[m.cursor].ID
	m.scroll()
}

func (m *ExploreModel) scroll() {
	h := m.outlineHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// rows returns the visible placements in pre-order.
func (m ExploreModel) rows() []render.Placement {
	return m.ctrl.Snapshot().Nodes
}

// outlineHeight is the number of rows left for the outline after the
// header, status line and help.
func (m ExploreModel) outlineHeight() int {
	return max(1, m.height-6)
}

// Selected returns the node under the cursor.
func (m ExploreModel) Selected() tree.ID { return m.selected }

// Frame returns the latest frame.
func (m ExploreModel) Frame() render.Frame { return m.frame }

// Err returns the error of the last interaction, if it failed.
func (m ExploreModel) Err() error { return m.err }

// View implements tea.Model.
func (m ExploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Canopy"))
	b.WriteString(outlineDimStyle.Render("  " + m.ctrl.Tree().Root().Label()))
	b.WriteString("\n\n")

	entered := make(map[tree.ID]bool, len(m.frame.Entered))
	for _, n := range m.frame.Entered {
		entered[n.ID] = true
	}

	rows := m.rows()
	end := min(len(rows), m.offset+m.outlineHeight())
	for i := m.offset; i < end; i++ {
		b.WriteString(m.outlineRow(rows[i], i == m.cursor, entered[rows[i].ID]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.status(len(rows)))
	b.WriteString("\n")
	b.WriteString(m.help.View(exploreKeys))
	return b.String()
}

func (m ExploreModel) outlineRow(p render.Placement, selected, entered bool) string {
	cursor := "  "
	if selected {
		cursor = "▸ "
	}
	marker := "•"
	switch {
	case p.Leaf:
	case p.Collapsed:
		marker = "+"
	default:
		marker = "-"
	}

	indent := strings.Repeat("  ", p.Depth)
	prefix := cursor + indent + marker + " "
	label := runewidth.Truncate(p.Label, max(1, m.width-runewidth.StringWidth(prefix)-1), "…")
	line := prefix + label

	switch {
	case selected:
		return outlineSelectedStyle.Render(line)
	case entered:
		return outlineEnteredStyle.Render(line)
	case p.Leaf:
		return outlineLeafStyle.Render(line)
	}
	return outlineNormalStyle.Render(line)
}

func (m ExploreModel) status(visible int) string {
	if m.err != nil {
		return outlineErrorStyle.Render(iconError + " " + m.err.Error())
	}
	parts := []string{
		fmt.Sprintf("#%d", m.frame.Seq),
		fmt.Sprintf("%d/%d visible", visible, m.ctrl.Tree().Len()),
		m.ctrl.Viewport().String(),
		m.ctrl.Transform().String(),
	}
	line := outlineDimStyle.Render(strings.Join(parts, " · "))
	if m.frame.Navigate != "" {
		line += "  " + StyleLink.Render(m.frame.Navigate)
	}
	return line
}

func indexOf(rows []render.Placement, id tree.ID) int {
	for i, p := range rows {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// Command
// =============================================================================

// exploreCommand creates the explore command for browsing a tree in the terminal.
func (c *CLI) exploreCommand() *cobra.Command {
	var open bool
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "explore [dataset]",
		Short: "Browse the tree interactively in the terminal",
		Long: `Browse the tree interactively in the terminal.

Enter toggles the node under the cursor; the tree is laid out again and the
view recentered after every change, exactly as in the browser. With --open,
clicking a node that carries a link opens it in the system browser.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyConfig(cmd, &opts)
			if len(args) == 1 {
				opts.Dataset = args[0]
			}
			return c.runExplore(cmd.Context(), opts, open)
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "open node links in the system browser")
	addTreeFlags(cmd, &opts)
	addViewFlags(cmd, &opts)

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, opts pipeline.Options, open bool) error {
	ctrl, err := c.newController(ctx, opts, open)
	if err != nil {
		return err
	}
	first, err := ctrl.Start(ctx)
	if err != nil {
		return err
	}

	p := tea.NewProgram(NewExploreModel(ctx, ctrl, first), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// newController builds the tree named by opts and a controller for it.
// Recentering comes from the configuration with flag overrides applied.
func (c *CLI) newController(ctx context.Context, opts pipeline.Options, open bool) (*controller.Controller, error) {
	if err := opts.ValidateForState(); err != nil {
		return nil, err
	}
	if err := opts.ValidateForLayout(); err != nil {
		return nil, err
	}
	root, _, err := pipeline.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	t, err := pipeline.BuildTree(root, opts)
	if err != nil {
		return nil, err
	}

	recenter := c.Config.RecenterOptions()
	flagRecenter := opts.RecenterOptions()
	recenter.Anchor = flagRecenter.Anchor
	recenter.Fit = flagRecenter.Fit
	recenter.Padding = flagRecenter.Padding

	var nav controller.Navigator = controller.NopNavigator{}
	if open {
		nav = controller.SystemNavigator{}
	}

	return controller.New(t, controller.Options{
		Engine:    layout.NewTidy(opts.LayoutConfig()),
		Navigator: nav,
		Logger:    c.Logger,
		Viewport:  view.Viewport{Width: opts.Width, Height: opts.Height},
		Recenter:  recenter,
	}), nil
}
