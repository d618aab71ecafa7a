package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shouni/vibe-wallpaper/pkg/domain"
	"github.com/shouni/vibe-wallpaper/pkg/imgutil"
	"github.com/shouni/vibe-wallpaper/pkg/session"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("201"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeTab  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("86")).Padding(0, 1)
	idleTab    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Padding(0, 1)
	errorBox   = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("204")).
			Padding(0, 1)
	errorHead = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("204"))
	cardStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	cardActive = cardStyle.BorderForeground(lipgloss.Color("205"))
	popupStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("205")).
			Padding(1, 2)
)

func (m Model) View() string {
	var body string
	switch {
	case m.showHelp:
		body = m.helpView()
	case m.state.Selected != nil:
		body = m.previewView(*m.state.Selected)
	default:
		body = m.mainView()
	}

	if m.width == 0 || m.height == 0 {
		return body
	}
	return lipgloss.NewStyle().MaxWidth(m.width).MaxHeight(m.height).Render(body)
}

func (m Model) mainView() string {
	sections := []string{
		titleStyle.Render(domain.AppTitle),
		m.formView(),
	}

	switch {
	case m.state.IsGenerating:
		sections = append(sections, m.spinnerPopup())
	case m.state.Error != nil:
		sections = append(sections, failureView(m.state.Error))
	case len(m.state.Images) == 0:
		sections = append(sections, mutedStyle.Render(domain.EmptyPlaceholder))
	default:
		sections = append(sections, m.gridView())
	}

	if m.notice != "" {
		sections = append(sections, labelStyle.Render(m.notice))
	}
	sections = append(sections, mutedStyle.Render(m.keyHints()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) formView() string {
	promptLabel := idleTab.Render("Prompt")
	if m.focus == focusPrompt {
		promptLabel = activeTab.Render("Prompt")
	}
	ratioLabel := idleTab.Render("Aspect")
	if m.focus == focusRatio {
		ratioLabel = activeTab.Render("Aspect")
	}

	ratios := make([]string, 0, len(domain.AspectRatios()))
	for _, ar := range domain.AspectRatios() {
		label := ar.Label()
		if ar == m.state.AspectRatio {
			label = "[" + label + "]"
		}
		ratios = append(ratios, label)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		promptLabel+" "+m.textInput.View(),
		ratioLabel+" "+strings.Join(ratios, "  "),
	)
}

func (m Model) spinnerPopup() string {
	return popupStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), m.state.Status()))
}

// failureView はエラー見出しとメッセージ、クォータ起因ならヘルプとリンクを描画します。
func failureView(f *domain.Failure) string {
	lines := []string{errorHead.Render(domain.ErrorHeadline), f.Message}
	if f.IsQuota() {
		lines = append(lines, "", lipgloss.NewStyle().Bold(true).Render(domain.QuotaHelpTitle), domain.QuotaHelpBody)
		for _, link := range domain.QuotaHelpLinks() {
			lines = append(lines, fmt.Sprintf("  %s: %s", link.Label, link.URL))
		}
	}
	return errorBox.Render(strings.Join(lines, "\n"))
}

func (m Model) gridView() string {
	cards := make([]string, 0, len(m.state.Images))
	for i, img := range m.state.Images {
		style := cardStyle
		if m.focus == focusGrid && i == m.cursor {
			style = cardActive
		}
		cards = append(cards, style.Render(imageCaption(i, img)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func imageCaption(i int, img domain.GeneratedImage) string {
	caption := fmt.Sprintf("#%d\n%s\n%s", i+1, img.MimeType, humanBytes(len(img.Data)))
	if w, h, err := imgutil.Dimensions(img.Data); err == nil {
		caption += fmt.Sprintf("\n%dx%d", w, h)
	}
	return caption
}

func (m Model) previewView(img domain.GeneratedImage) string {
	parts := []string{titleStyle.Render("Preview")}
	if inline := renderInline(m.cfg.Protocol, img.Data); inline != "" {
		parts = append(parts, inline)
	} else {
		parts = append(parts, cardActive.Render(imageCaption(0, img)))
	}
	parts = append(parts,
		labelStyle.Render("Prompt: ")+m.state.Prompt,
		idleTab.Render("[d] Download")+idleTab.Render("[r] Remix")+idleTab.Render("[esc] Close"),
	)
	if m.notice != "" {
		parts = append(parts, labelStyle.Render(m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) helpView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(domain.HelpTitle))
	sb.WriteString("\n\n")
	for i, step := range domain.HelpSteps() {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, lipgloss.NewStyle().Bold(true).Render(step.Title))
		sb.WriteString(lipgloss.NewStyle().Width(max(m.width-8, 40)).PaddingLeft(3).Render(step.Body))
		sb.WriteString("\n\n")
	}
	sb.WriteString(mutedStyle.Render("esc: close"))
	return popupStyle.Render(sb.String())
}

func (m Model) keyHints() string {
	if m.state.IsGenerating {
		return "ctrl+c: quit"
	}
	switch m.focus {
	case focusRatio:
		return "←/→: aspect ratio • enter: generate • tab: next • ?: help • q: quit"
	case focusGrid:
		return "←/→: move • enter: preview • tab: next • ?: help • q: quit"
	}
	return "enter: generate • tab: next • f1: help • ctrl+c: quit"
}

func humanBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

var _ Session = (*session.Orchestrator)(nil)
