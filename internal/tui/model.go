package tui

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shouni/go-remote-io/pkg/remoteio"

	"github.com/shouni/vibe-wallpaper/internal/output"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

// Session は TUI が操作するセッションの窓口です。*session.Orchestrator が満たします。
type Session interface {
	State() session.State
	Subscribe(fn func(session.State)) (unsubscribe func())
	SetPrompt(prompt string) error
	SetAspectRatio(ar domain.AspectRatio) error
	Submit(ctx context.Context, prompt string, ar domain.AspectRatio) *session.Task
	SelectImage(id string) error
	ClosePreview()
	Remix(ctx context.Context) *session.Task
	Download() (*session.Export, error)
}

type focusArea int

const (
	focusPrompt focusArea = iota
	focusRatio
	focusGrid
	focusCount
)

// stateMsg は購読経由で届いた最新の状態です。
type stateMsg session.State

// savedMsg はダウンロードの結果です。
type savedMsg struct {
	path string
	err  error
}

// Config は TUI の設定です。
type Config struct {
	OutputDir string
	Protocol  Protocol
	// Writer が nil の場合はローカルに書き出すのだ
	Writer remoteio.OutputWriter
}

// Model は bubbletea のモデルです。
type Model struct {
	ctx     context.Context
	session Session
	cfg     Config

	updates     chan session.State
	unsubscribe func()

	state      session.State
	lastPrompt string
	textInput  textinput.Model
	spinner    spinner.Model
	focus      focusArea
	cursor     int
	showHelp   bool
	notice     string
	width      int
	height     int
}

// New は s の状態変化を購読する Model を生成します。終了時には Close を呼んでください。
func New(ctx context.Context, s Session, cfg Config) Model {
	ti := textinput.New()
	ti.Placeholder = "Describe your vibe..."
	ti.CharLimit = 500
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if cfg.Protocol == "" {
		cfg.Protocol = ProtocolNone
	}
	if cfg.Writer == nil {
		cfg.Writer = output.NewWriter()
	}

	m := Model{
		ctx:       ctx,
		session:   s,
		cfg:       cfg,
		updates:   make(chan session.State, 1),
		state:     s.State(),
		textInput: ti,
		spinner:   sp,
		focus:     focusPrompt,
	}
	m.textInput.SetValue(m.state.Prompt)
	m.lastPrompt = m.state.Prompt
	m.unsubscribe = s.Subscribe(m.push)
	return m
}

// push は最新の状態だけを残してチャネルに積みます。通知側をブロックしません。
func (m Model) push(s session.State) {
	for {
		select {
		case m.updates <- s:
			return
		default:
			select {
			case <-m.updates:
			default:
			}
		}
	}
}

// Close は購読を解除します。
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m Model) waitForState() tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-m.updates:
			return stateMsg(s)
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForState())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = max(msg.Width-12, 20)
		return m, nil

	case stateMsg:
		m.applyState(session.State(msg))
		return m, m.waitForState()

	case savedMsg:
		if msg.err != nil {
			m.notice = "Download failed: " + msg.err.Error()
		} else {
			m.notice = "Saved: " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

// applyState は購読から届いた状態を反映します。生成中はフォームを無効化します。
// セッション側でプロンプトが変わった時だけ入力欄を書き換え、入力途中の文字は残します。
func (m *Model) applyState(s session.State) {
	m.state = s
	if s.Prompt != m.lastPrompt {
		m.textInput.SetValue(s.Prompt)
		m.lastPrompt = s.Prompt
	}
	if s.IsGenerating {
		m.textInput.Blur()
		m.notice = ""
	} else if !m.textInput.Focused() && m.focus == focusPrompt {
		m.textInput.Focus()
	}
	if m.cursor >= len(s.Images) {
		m.cursor = max(len(s.Images)-1, 0)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showHelp {
		switch key {
		case "esc", "enter", "?", "f1", "q":
			m.showHelp = false
		}
		return m, nil
	}

	if m.state.Selected != nil {
		return m.handlePreviewKey(key)
	}

	switch key {
	case "f1":
		m.showHelp = true
		return m, nil
	case "tab":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	}

	if m.focus == focusPrompt {
		if key == "enter" {
			return m.submit()
		}
		if m.state.IsGenerating {
			return m, nil
		}
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "enter":
		if m.focus == focusGrid {
			m.selectCurrent()
			return m, nil
		}
		return m.submit()
	case "left", "h", "up", "k":
		m.move(-1)
	case "right", "l", "down", "j":
		m.move(1)
	}
	return m, nil
}

func (m Model) handlePreviewKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc", "x", "c":
		m.session.ClosePreview()
	case "r":
		if m.session.Remix(m.ctx) == nil {
			m.notice = "Remix is not available right now."
		}
	case "d", "enter":
		return m, m.download()
	case "q":
		return m, tea.Quit
	}
	return m, nil
}

// setFocus はフォーカスを移します。プロンプト欄を離れるときに入力内容を状態へ反映します。
func (m *Model) setFocus(f focusArea) {
	if m.focus == focusPrompt && f != focusPrompt {
		if v := m.textInput.Value(); v != m.state.Prompt {
			if err := m.session.SetPrompt(v); err != nil && !errors.Is(err, session.ErrBusy) {
				slog.Warn("プロンプトの更新に失敗しました", "error", err)
			}
		}
		m.textInput.Blur()
	}
	m.focus = f
	if f == focusPrompt && !m.state.IsGenerating {
		m.textInput.Focus()
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.state.IsGenerating {
		return m, nil
	}
	prompt := m.textInput.Value()
	if strings.TrimSpace(prompt) == "" {
		m.notice = "Please enter a prompt."
		return m, nil
	}
	if m.session.Submit(m.ctx, prompt, m.state.AspectRatio) == nil {
		m.notice = "A generation is already in progress."
		return m, nil
	}
	m.notice = ""
	return m, m.spinner.Tick
}

// move は選択中の縦横比または画像カーソルを動かします。
func (m *Model) move(delta int) {
	if m.state.IsGenerating {
		return
	}
	switch m.focus {
	case focusRatio:
		ratios := domain.AspectRatios()
		idx := slices.Index(ratios, m.state.AspectRatio)
		next := ratios[(idx+delta+len(ratios))%len(ratios)]
		if err := m.session.SetAspectRatio(next); err != nil {
			m.notice = err.Error()
		}
	case focusGrid:
		if n := len(m.state.Images); n > 0 {
			m.cursor = (m.cursor + delta + n) % n
		}
	}
}

func (m *Model) selectCurrent() {
	if m.cursor >= len(m.state.Images) {
		return
	}
	if err := m.session.SelectImage(m.state.Images[m.cursor].ID); err != nil {
		m.notice = err.Error()
	}
}

// download は選択中の画像を出力ディレクトリへ保存するコマンドを返します。
func (m Model) download() tea.Cmd {
	ctx, s, w, dir := m.ctx, m.session, m.cfg.Writer, m.cfg.OutputDir
	return func() tea.Msg {
		path, err := SaveExport(ctx, s, w, dir)
		return savedMsg{path: path, err: err}
	}
}

// SaveExport は Download の結果を w 経由で dir に書き出し、保存先のパスを返します。
func SaveExport(ctx context.Context, s Session, w remoteio.OutputWriter, dir string) (string, error) {
	export, err := s.Download()
	if err != nil {
		return "", err
	}
	path, err := output.Write(ctx, w, dir, export.Filename, export.Data)
	if err != nil {
		return "", err
	}
	slog.Info("壁紙を保存しました", "path", path, "bytes", len(export.Data))
	return path, nil
}
