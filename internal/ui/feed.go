package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/craftlink/craftlink/internal/model"
	"github.com/craftlink/craftlink/internal/theme"
)

// feedItem adapts one notification to the bubbles list item interface.
type feedItem struct {
	n model.Notification
}

func (i feedItem) Title() string {
	marker := theme.VariantStyle(i.n.Variant).Render("●")
	title := i.n.Title
	if title == "" {
		title = string(i.n.Kind)
	}
	if i.n.Unread() {
		return marker + " " + theme.UnreadTitleStyle.Render(title)
	}
	return marker + " " + theme.ReadTitleStyle.Render(title)
}

func (i feedItem) Description() string {
	return fmt.Sprintf("%s · %s", i.n.Message, i.n.CreatedAt.Local().Format("Jan 2 15:04"))
}

func (i feedItem) FilterValue() string {
	return i.n.Title + " " + i.n.Message
}

// Feed is the notification feed panel.
type Feed struct {
	list list.Model
}

// NewFeed creates the feed panel with the given dimensions.
func NewFeed(width, height int) Feed {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Notifications"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return Feed{list: l}
}

// SetNotifications replaces the visible entries. Called on every ledger
// change; the list is rebuilt rather than patched.
func (f *Feed) SetNotifications(notifications []model.Notification) {
	items := make([]list.Item, 0, len(notifications))
	for _, n := range notifications {
		items = append(items, feedItem{n: n})
	}
	f.list.SetItems(items)
}

// Selected returns the highlighted notification, if any.
func (f *Feed) Selected() (model.Notification, bool) {
	item, ok := f.list.SelectedItem().(feedItem)
	if !ok {
		return model.Notification{}, false
	}
	return item.n, true
}

// SetSize resizes the panel.
func (f *Feed) SetSize(width, height int) {
	f.list.SetSize(width, height)
}

// Update forwards navigation to the list.
func (f *Feed) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.list, cmd = f.list.Update(msg)
	return cmd
}

// View renders the panel.
func (f *Feed) View() string {
	return f.list.View()
}
