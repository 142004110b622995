// Package app is the root bubbletea model of the reference client. It
// hosts the engine: the login form opens a session, engine change
// subscriptions arrive as messages, and keybindings drive the ledger's
// read-state operations.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/craftlink/craftlink/internal/effects"
	"github.com/craftlink/craftlink/internal/engine"
	"github.com/craftlink/craftlink/internal/keys"
	"github.com/craftlink/craftlink/internal/model"
	"github.com/craftlink/craftlink/internal/session"
	"github.com/craftlink/craftlink/internal/theme"
	"github.com/craftlink/craftlink/internal/ui"
)

// changeMsg signals that the ledger or a chat cache changed and the
// visible state must be re-queried.
type changeMsg struct{}

// opTimeout bounds ledger operations triggered from keybindings.
const opTimeout = 5 * time.Second

// ViewState represents the current active view.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewFeed
	ViewChats
)

// Model is the root application model.
type Model struct {
	cfg    *model.AppConfig
	keys   *keys.KeyMap
	logger *log.Logger

	currentView ViewState
	width       int
	height      int
	showHelp    bool

	login *ui.Login
	feed  ui.Feed
	chats ui.Chats

	sess        *engine.Session
	changeCh    chan struct{}
	unsubscribe []func()

	unreadCount int
	status      string
}

// New creates the root model. The session is opened after login completes.
func New(cfg *model.AppConfig, logger *log.Logger) Model {
	return Model{
		cfg:         cfg,
		keys:        keys.DefaultKeyMap(),
		logger:      logger,
		currentView: ViewLogin,
		login:       ui.NewLogin(),
		feed:        ui.NewFeed(80, 22),
		chats:       ui.NewChats(80, 22),
		changeCh:    make(chan struct{}, 1),
	}
}

// Init starts the login form.
func (m Model) Init() tea.Cmd {
	return m.login.Init()
}

// waitForChange returns a command that blocks until the engine reports a
// change, then re-arms itself from Update.
func (m Model) waitForChange() tea.Cmd {
	ch := m.changeCh
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

// signalChange coalesces engine callbacks into the change channel.
func (m Model) signalChange() {
	select {
	case m.changeCh <- struct{}{}:
	default:
	}
}

// Update routes messages to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.feed.SetSize(msg.Width, msg.Height-2)
		m.chats.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case changeMsg:
		m.reload()
		return m, m.waitForChange()

	case tea.KeyMsg:
		if m.currentView != ViewLogin {
			if handled, next, cmd := m.handleKey(msg); handled {
				return next, cmd
			}
		}
	}

	switch m.currentView {
	case ViewLogin:
		cmd := m.login.Update(msg)
		if m.login.Aborted() {
			return m, tea.Quit
		}
		if m.login.Done() {
			return m.startSession()
		}
		return m, cmd
	case ViewFeed:
		return m, m.feed.Update(msg)
	case ViewChats:
		return m, m.chats.Update(msg)
	}
	return m, nil
}

// startSession opens the engine for the identity collected at login.
func (m Model) startSession() (tea.Model, tea.Cmd) {
	identity := m.login.Identity()
	token := m.login.Token()

	if err := session.SaveToken(identity, token); err != nil && m.logger != nil {
		// Keyring may be locked or absent; the session still works.
		m.logger.Printf("app: saving token: %v", err)
	}

	sess, err := engine.Open(m.cfg, identity, token, effects.Bell{W: os.Stderr}, m.logger)
	if err != nil {
		m.status = fmt.Sprintf("session failed: %v", err)
		return m, nil
	}
	m.sess = sess

	m.unsubscribe = append(m.unsubscribe,
		sess.Ledger().Subscribe(m.signalChange),
		sess.Chat().Subscribe(m.signalChange),
	)

	m.currentView = ViewFeed
	m.reload()
	return m, m.waitForChange()
}

// reload re-queries everything the views show. The unread count is always
// recomputed from the ledger, never cached independently.
func (m *Model) reload() {
	if m.sess == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	m.feed.SetNotifications(m.sess.Ledger().Query(ctx))
	m.unreadCount = m.sess.Ledger().UnreadCount(ctx)
	m.chats.SetContacts(m.sess.Chat().Contacts())
}

// handleKey processes global keybindings outside the login view.
func (m Model) handleKey(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.sess != nil {
			for _, cancelSub := range m.unsubscribe {
				cancelSub()
			}
			m.sess.Close()
		}
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.Switch):
		if m.currentView == ViewFeed {
			m.currentView = ViewChats
		} else {
			m.currentView = ViewFeed
		}
		return true, m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return true, m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.sess.Refresh()
		return true, m, nil

	case key.Matches(msg, m.keys.MarkRead):
		if m.currentView == ViewFeed {
			if n, ok := m.feed.Selected(); ok {
				m.markErr(m.sess.Ledger().MarkAsRead(ctx, n.ID))
			}
			return true, m, nil
		}

	case key.Matches(msg, m.keys.MarkAllRead):
		if m.currentView == ViewFeed {
			m.markErr(m.sess.Ledger().MarkAllAsRead(ctx))
			return true, m, nil
		}

	case key.Matches(msg, m.keys.MarkKindRead):
		if m.currentView == ViewFeed {
			if n, ok := m.feed.Selected(); ok {
				m.markErr(m.sess.Ledger().MarkKindAsRead(ctx, n.Kind))
			}
			return true, m, nil
		}

	case key.Matches(msg, m.keys.Clear):
		if m.currentView == ViewFeed {
			m.markErr(m.sess.Ledger().Clear(ctx))
			return true, m, nil
		}

	case key.Matches(msg, m.keys.Select):
		if m.currentView == ViewChats {
			if c, ok := m.chats.Selected(); ok {
				contactID := c.ID
				sess := m.sess
				return true, m, func() tea.Msg {
					openCtx, openCancel := context.WithTimeout(context.Background(), opTimeout)
					defer openCancel()
					if err := sess.Chat().Open(openCtx, contactID); err != nil && m.logger != nil {
						m.logger.Printf("app: opening conversation %d: %v", contactID, err)
					}
					return changeMsg{}
				}
			}
		}

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewChats && m.sess.Chat().Active() != 0 {
			m.sess.Chat().Close()
			return true, m, nil
		}
	}

	return false, m, nil
}

// markErr logs a failed read-state operation without interrupting the UI.
func (m *Model) markErr(err error) {
	if err != nil && m.logger != nil {
		m.logger.Printf("app: read-state operation: %v", err)
	}
}

// View renders the header, the active panel, and the status bar.
func (m Model) View() string {
	if m.currentView == ViewLogin {
		return m.login.View()
	}

	title := theme.HeaderStyle.Render("craftlink")
	badge := ""
	if m.unreadCount > 0 {
		badge = theme.UnreadBadgeStyle.Render(fmt.Sprintf("%d unread", m.unreadCount))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, " ", badge)

	var body string
	switch m.currentView {
	case ViewFeed:
		body = m.feed.View()
	case ViewChats:
		body = m.chats.View()
	}

	status := m.status
	if status == "" {
		status = "tab: feed/chats · m: mark read · M: mark all · r: refresh · q: quit"
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		body,
		theme.StatusBarStyle.Width(m.width).Render(status),
	)
}
