package main

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	ffiguard "github.com/wippyai/ffi-guard"
	"github.com/wippyai/ffi-guard/cmem"
	"github.com/wippyai/ffi-guard/errors"
	"github.com/wippyai/ffi-guard/handle"
	"github.com/wippyai/ffi-guard/lasterr"
	"github.com/wippyai/ffi-guard/registry"
	"github.com/wippyai/ffi-guard/testbed"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// eventLog keeps the tail of registry lifecycle events for the status panel.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) OnRegistryEvent(e registry.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf("%s %v (%v)", e.Type, e.Ptr, e.Tag))
	if len(l.events) > 8 {
		l.events = l.events[len(l.events)-8:]
	}
}

func (l *eventLog) tail() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type interactiveModel struct {
	err      error
	refs     map[string]ffiguard.Ptr
	events   *eventLog
	live     []registry.EntryInfo
	ops      []opInfo
	inputs   []textinput.Model
	result   string
	lastMsg  string
	lastCode int32
	selected int
	focusIdx int
	state    modelState
}

type opInfo struct {
	name       string
	resultType string
	params     []paramInfo
}

type paramInfo struct {
	name string
	hint string
}

type modelState int

const (
	stateSelectOp modelState = iota
	stateInputArgs
	stateShowResult
)

const refHint = "ident, null or 0x..."
const typeHint = "codec|session|frame|cstring|buffer|wide|ansi"

func boundaryOps() []opInfo {
	return []opInfo{
		{name: "codec_open", resultType: "handle", params: []paramInfo{{"name", "string"}, {"ref", "ident"}}},
		{name: "session_open", resultType: "handle", params: []paramInfo{{"id", "string"}, {"ref", "ident"}}},
		{name: "frame_alloc", resultType: "handle", params: []paramInfo{{"payload", "string"}, {"ref", "ident"}}},
		{name: "cstring_new", resultType: "handle", params: []paramInfo{{"text", "string"}, {"ref", "ident"}}},
		{name: "bytes_new", resultType: "handle", params: []paramInfo{{"hex", "hex bytes"}, {"ref", "ident"}}},
		{name: "wide_new", resultType: "handle", params: []paramInfo{{"text", "string"}, {"ref", "ident"}}},
		{name: "ansi_new", resultType: "handle", params: []paramInfo{{"text", "string"}, {"ref", "ident"}}},
		{name: "validate", resultType: "status", params: []paramInfo{{"ref", refHint}, {"type", typeHint}}},
		{name: "borrow", resultType: "value", params: []paramInfo{{"ref", refHint}, {"type", typeHint}}},
		{name: "cstring_read", resultType: "string", params: []paramInfo{{"ref", refHint}}},
		{name: "free", resultType: "status", params: []paramInfo{{"ref", refHint}}},
	}
}

func newInteractiveModel() *interactiveModel {
	m := &interactiveModel{
		refs:   make(map[string]ffiguard.Ptr),
		events: &eventLog{},
		ops:    boundaryOps(),
		state:  stateSelectOp,
	}
	registry.Default().Subscribe(m.events)
	return m
}

type opResultMsg struct {
	err      error
	result   string
	live     []registry.EntryInfo
	lastMsg  string
	lastCode int32
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			registry.Default().Unsubscribe(m.events)
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				registry.Default().Unsubscribe(m.events)
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectOp && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectOp && m.selected < len(m.ops)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectOp:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callOp
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callOp

			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectOp
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectOp
				m.result = ""
				m.err = nil
			}
		}

	case opResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.live = msg.live
		m.lastCode = msg.lastCode
		m.lastMsg = msg.lastMsg
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	op := m.ops[m.selected]
	m.inputs = make([]textinput.Model, len(op.params))
	for i, p := range op.params {
		ti := textinput.New()
		ti.Placeholder = p.hint
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// callOp runs the selected boundary call. The goroutine is pinned for its
// duration so the recorded last error is read back from the same thread slot
// it was written to.
func (m *interactiveModel) callOp() tea.Msg {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	op := m.ops[m.selected]
	args := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		args[i] = strings.TrimSpace(input.Value())
	}

	result, err := m.dispatch(op.name, args)
	code, lmsg := lasterr.Take()

	return opResultMsg{
		result:   result,
		err:      err,
		live:     registry.Default().Live(),
		lastCode: code,
		lastMsg:  lmsg,
	}
}

func (m *interactiveModel) dispatch(op string, args []string) (string, error) {
	switch op {
	case "codec_open":
		p := handle.Track(testbed.NewCodec(args[0]))
		m.bind(args[1], p)
		return fmt.Sprintf("codec at %v", p), nil

	case "session_open":
		p := handle.Track(testbed.NewSession(args[0]))
		m.bind(args[1], p)
		return fmt.Sprintf("session at %v", p), nil

	case "frame_alloc":
		p := handle.Track(testbed.NewFrame([]byte(args[0])))
		m.bind(args[1], p)
		return fmt.Sprintf("frame at %v", p), nil

	case "cstring_new":
		p, err := cmem.NewCString(args[0])
		if err != nil {
			return "", err
		}
		m.bind(args[1], p)
		return p.String(), nil

	case "bytes_new":
		raw, err := hex.DecodeString(args[0])
		if err != nil {
			return "", fmt.Errorf("bad hex %q: %w", args[0], err)
		}
		p, err := cmem.NewBytes(raw)
		if err != nil {
			return "", err
		}
		m.bind(args[1], p)
		return p.String(), nil

	case "wide_new":
		p, err := cmem.NewWideString(args[0])
		if err != nil {
			return "", err
		}
		m.bind(args[1], p)
		return p.String(), nil

	case "ansi_new":
		p, err := cmem.NewAnsiString(args[0])
		if err != nil {
			return "", err
		}
		m.bind(args[1], p)
		return p.String(), nil

	case "validate":
		p, err := resolveRef(m.refs, args[0])
		if err != nil {
			return "", err
		}
		validate, ok := validators[args[1]]
		if !ok {
			return "", fmt.Errorf("unknown type %q", args[1])
		}
		if err := validate(p); err != nil {
			return "", err
		}
		return "valid", nil

	case "borrow":
		p, err := resolveRef(m.refs, args[0])
		if err != nil {
			return "", err
		}
		borrow, ok := borrowers[args[1]]
		if !ok {
			return "", fmt.Errorf("unknown type %q", args[1])
		}
		return borrow(p)

	case "cstring_read":
		p, err := resolveRef(m.refs, args[0])
		if err != nil {
			return "", err
		}
		text, err := cmem.GoString(p)
		if err != nil {
			return "", err
		}
		return strconv.Quote(text), nil

	case "free":
		p, err := resolveRef(m.refs, args[0])
		if err != nil {
			return "", err
		}
		if err := handle.Free(p); err != nil {
			return "", err
		}
		return "freed", nil
	}

	return "", fmt.Errorf("unknown op %q", op)
}

func (m *interactiveModel) bind(ref string, p ffiguard.Ptr) {
	if ref == "" {
		ref = fmt.Sprintf("h%d", len(m.refs)+1)
	}
	m.refs[ref] = p
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FFI Simulator"))
	b.WriteString(" in-process boundary\n\n")

	switch m.state {
	case stateSelectOp:
		b.WriteString("Select a boundary call:\n\n")
		for i, op := range m.ops {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatOp(op)))
			} else {
				b.WriteString(cursor + m.formatOp(op))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.statusView())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(op.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(op.params[i].hint))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		op := m.ops[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(op.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(m.statusView())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) statusView() string {
	var b strings.Builder

	b.WriteString("Live handles:\n")
	if len(m.live) == 0 {
		b.WriteString(helpStyle.Render("  none"))
		b.WriteString("\n")
	} else {
		byPtr := make(map[ffiguard.Ptr]string, len(m.refs))
		for ref, p := range m.refs {
			byPtr[p] = ref
		}
		for _, e := range m.live {
			name := byPtr[e.Ptr]
			if name == "" {
				name = "?"
			}
			b.WriteString(fmt.Sprintf("  %s  %v  %s\n", funcStyle.Render(name), e.Ptr, typeStyle.Render(e.Tag.String())))
		}
	}

	if tail := m.events.tail(); len(tail) > 0 {
		b.WriteString("\nRecent events:\n")
		for _, ev := range tail {
			b.WriteString(helpStyle.Render("  " + ev))
			b.WriteString("\n")
		}
	}

	if m.lastCode != errors.CodeNone {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("last error: code=%d %s", m.lastCode, m.lastMsg)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *interactiveModel) formatOp(op opInfo) string {
	var params []string
	for _, p := range op.params {
		params = append(params, p.name+": "+typeStyle.Render(p.hint))
	}
	result := ""
	if op.resultType != "" {
		result = " -> " + typeStyle.Render(op.resultType)
	}
	return funcStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
