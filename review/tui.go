package review

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// State represents the review session state machine
type State string

const (
	StateReviewing State = "reviewing"
	StateDone      State = "done"
	StateAborted   State = "aborted"
)

// Model is the interactive slide review session. Decisions are kept in
// memory until the session completes; quitting early discards them so a
// partial review never touches disk.
type Model struct {
	VideoID string
	Queue   []Flagged

	Index     int
	Decisions []Decision
	State     State
}

// NewModel creates a review session over a flagged-slide queue.
func NewModel(videoID string, queue []Flagged) Model {
	return Model{
		VideoID:   videoID,
		Queue:     queue,
		Decisions: make([]Decision, 0, len(queue)),
		State:     StateReviewing,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.State != StateReviewing {
		switch msg.String() {
		case "ctrl+c", "q", "enter":
			return m, tea.Quit
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.State = StateAborted
		return m, tea.Quit
	case "r", "R":
		return m.decide(true), nil
	case "k", "K", "enter":
		// keep is the safe default
		return m.decide(false), nil
	}
	return m, nil
}

// decide records a verdict for the current slide and advances
func (m Model) decide(remove bool) Model {
	current := m.Queue[m.Index]
	m.Decisions = append(m.Decisions, Decision{
		Filename: current.Slide.Filename,
		Remove:   remove,
		Reason:   current.Reason,
	})
	m.Index++
	if m.Index >= len(m.Queue) {
		m.State = StateDone
	}
	return m
}

// View implements tea.Model interface
func (m Model) View() string {
	var b strings.Builder

	title := fmt.Sprintf("🔍 Slide Review: %s", m.VideoID)
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	switch m.State {
	case StateAborted:
		b.WriteString(RemoveStyle.Render("Review aborted, no changes made"))
		b.WriteString("\n")
	case StateDone:
		removals := 0
		for _, d := range m.Decisions {
			if d.Remove {
				removals++
			}
		}
		summary := fmt.Sprintf("Reviewed %d slides | Remove: %d | Keep: %d",
			len(m.Decisions), removals, len(m.Decisions)-removals)
		b.WriteString(KeepStyle.Render(summary))
		b.WriteString("\n\n")
		b.WriteString(HighlightStyle.Render("Press Enter to apply | 'q' to exit"))
		b.WriteString("\n")
	case StateReviewing:
		b.WriteString(m.renderCurrent())
	}

	return b.String()
}

// renderCurrent formats the slide under review
func (m Model) renderCurrent() string {
	var b strings.Builder

	current := m.Queue[m.Index]
	slide := current.Slide

	progress := fmt.Sprintf("Slide %d of %d", m.Index+1, len(m.Queue))
	b.WriteString(InfoStyle.Render(progress))
	b.WriteString("\n\n")

	var panel strings.Builder
	panel.WriteString(fmt.Sprintf("File:      %s\n", slide.Filename))
	panel.WriteString(fmt.Sprintf("Timestamp: %s\n", slide.TimestampFormatted))
	reason := current.Reason
	if reason == "" {
		reason = "passed all checks"
	}
	panel.WriteString(fmt.Sprintf("Flagged:   %s", reason))
	if slide.IsDuplicateOf != "" {
		panel.WriteString(fmt.Sprintf("\nDuplicate of: %s", slide.IsDuplicateOf))
	}
	if excerpt := ocrExcerpt(slide.OCRText, 240); excerpt != "" {
		panel.WriteString("\n\nOCR text:\n")
		panel.WriteString(excerpt)
	}
	b.WriteString(BoxStyle.Render(panel.String()))
	b.WriteString("\n\n")

	b.WriteString(InfoStyle.Render("'k'/Enter keep | 'r' remove | 'q' abort"))
	b.WriteString("\n")
	return b.String()
}

// ocrExcerpt collapses OCR text to a single short excerpt for display
func ocrExcerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}
	if len(text) > limit {
		text = text[:limit] + "..."
	}
	return text
}

// RunInteractive drives a full review session in the terminal and returns
// the recorded decisions. An aborted session returns ok=false and nothing
// should be applied.
func RunInteractive(videoID string, queue []Flagged) ([]Decision, bool, error) {
	final, err := tea.NewProgram(NewModel(videoID, queue)).Run()
	if err != nil {
		return nil, false, fmt.Errorf("review session failed: %w", err)
	}
	m, valid := final.(Model)
	if !valid || m.State != StateDone {
		return nil, false, nil
	}
	return m.Decisions, true, nil
}
