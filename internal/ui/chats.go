package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/craftlink/craftlink/internal/model"
	"github.com/craftlink/craftlink/internal/theme"
)

// chatItem adapts one contact to the bubbles list item interface.
type chatItem struct {
	c model.Contact
}

func (i chatItem) Title() string {
	if i.c.UnreadCount > 0 {
		badge := theme.UnreadBadgeStyle.Render(fmt.Sprintf("%d", i.c.UnreadCount))
		return theme.UnreadTitleStyle.Render(i.c.Name) + " " + badge
	}
	return theme.ReadTitleStyle.Render(i.c.Name)
}

func (i chatItem) Description() string {
	if i.c.UnreadCount > 0 {
		return fmt.Sprintf("%d unread", i.c.UnreadCount)
	}
	return "no unread messages"
}

func (i chatItem) FilterValue() string {
	return i.c.Name
}

// Chats is the conversation list panel.
type Chats struct {
	list list.Model
}

// NewChats creates the chat panel with the given dimensions.
func NewChats(width, height int) Chats {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Chats"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return Chats{list: l}
}

// SetContacts replaces the visible contacts.
func (c *Chats) SetContacts(contacts []model.Contact) {
	items := make([]list.Item, 0, len(contacts))
	for _, contact := range contacts {
		items = append(items, chatItem{c: contact})
	}
	c.list.SetItems(items)
}

// Selected returns the highlighted contact, if any.
func (c *Chats) Selected() (model.Contact, bool) {
	item, ok := c.list.SelectedItem().(chatItem)
	if !ok {
		return model.Contact{}, false
	}
	return item.c, true
}

// SetSize resizes the panel.
func (c *Chats) SetSize(width, height int) {
	c.list.SetSize(width, height)
}

// Update forwards navigation to the list.
func (c *Chats) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	c.list, cmd = c.list.Update(msg)
	return cmd
}

// View renders the panel.
func (c *Chats) View() string {
	return c.list.View()
}
