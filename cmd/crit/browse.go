package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"critterbot/internal/cli"
	"critterbot/internal/market/nameindex"
)

func newBrowseCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the market interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := newBrowseModel(cli.NewClient(*apiBase))
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
}

var (
	browseTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")).Padding(0, 1)
	browseHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	browseStatus  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	browseErrText = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	browseDetail  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2)
)

type browseMode int

const (
	modeList browseMode = iota
	modeSearch
	modeDetail
)

type itemRef struct{ name, itemType, itemID string }

type overviewMsg struct{ payload overviewPayload }

type detailMsg struct{ payload itemPayload }

type catalogMsg struct{ refs []itemRef }

type browseErrMsg struct{ err error }

type browseModel struct {
	client *cli.Client

	mode    browseMode
	page    int
	maxPage int
	rows    []overviewRow
	detail  itemPayload
	input   textinput.Model

	// names resolves typed lookups the same way the chat commands do,
	// falling back to the closest catalog name on a miss.
	names *nameindex.Index
	refs  []itemRef

	loading bool
	err     error
}

func newBrowseModel(client *cli.Client) browseModel {
	in := textinput.New()
	in.Placeholder = "item name"
	in.CharLimit = 48
	in.Width = 32
	return browseModel{
		client: client,
		input:  in,
	}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.fetchOverview(0), m.fetchCatalog())
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case overviewMsg:
		m.loading = false
		m.err = nil
		m.page = msg.payload.Page
		m.maxPage = msg.payload.MaxPage
		m.rows = msg.payload.Rows
		return m, nil

	case detailMsg:
		m.loading = false
		m.err = nil
		m.detail = msg.payload
		m.mode = modeDetail
		return m, nil

	case catalogMsg:
		m.refs = msg.refs
		idx := nameindex.New()
		for i, ref := range msg.refs {
			idx.Insert(ref.name, i)
		}
		m.names = idx
		return m, nil

	case browseErrMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m browseModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeSearch {
		switch msg.Type {
		case tea.KeyEsc:
			m.mode = modeList
			m.input.Blur()
			return m, nil
		case tea.KeyEnter:
			query := m.input.Value()
			m.mode = modeList
			m.input.Blur()
			m.input.SetValue("")
			if ref, ok := m.resolve(query); ok {
				m.loading = true
				return m, m.fetchDetail(ref)
			}
			m.err = fmt.Errorf("no item matches %q", strings.TrimSpace(query))
			return m, nil
		case tea.KeyCtrlC:
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		if m.mode == modeDetail {
			m.mode = modeList
		}
		return m, nil
	case "left", "h":
		if m.mode == modeList && m.page > 0 {
			m.loading = true
			return m, m.fetchOverview(m.page - 1)
		}
	case "right", "l":
		if m.mode == modeList && m.page < m.maxPage {
			m.loading = true
			return m, m.fetchOverview(m.page + 1)
		}
	case "r":
		m.loading = true
		if m.mode == modeDetail {
			return m, m.fetchDetail(itemRef{itemType: m.detail.Type, itemID: m.detail.ID})
		}
		return m, m.fetchOverview(m.page)
	case "/":
		m.mode = modeSearch
		m.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m browseModel) resolve(query string) (itemRef, bool) {
	if m.names == nil {
		return itemRef{}, false
	}
	i, ok := m.names.Find(query)
	if !ok || i < 0 || i >= len(m.refs) {
		return itemRef{}, false
	}
	return m.refs[i], true
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(browseTitle.Render("critterbot market"))
	b.WriteString("\n\n")

	switch m.mode {
	case modeDetail:
		b.WriteString(m.viewDetail())
	default:
		b.WriteString(m.viewList())
	}

	if m.mode == modeSearch {
		b.WriteString("\nFind: " + m.input.View() + "\n")
	}
	if m.err != nil {
		b.WriteString("\n" + browseErrText.Render(m.err.Error()) + "\n")
	}

	status := "←/→ page · / find · r refresh · q quit"
	if m.mode == modeDetail {
		status = "esc back · r refresh · q quit"
	}
	if m.loading {
		status = "loading… · " + status
	}
	b.WriteString("\n" + browseStatus.Render(status) + "\n")
	return b.String()
}

func (m browseModel) viewList() string {
	var b strings.Builder
	b.WriteString(browseHeader.Render(fmt.Sprintf("%-18s %12s %12s %8s %8s", "ITEM", "BUY NOW", "SELL NOW", "SUPPLY", "DEMAND")))
	b.WriteString("\n")
	if len(m.rows) == 0 {
		b.WriteString("nothing listed yet\n")
	}
	for _, r := range m.rows {
		b.WriteString(fmt.Sprintf("%-18s %12s %12s %8d %8d\n",
			truncate(r.Name, 18),
			formatBucks(r.InstaBuyPrice),
			formatBucks(r.InstaSellPrice),
			r.SellVolume,
			r.BuyVolume,
		))
	}
	b.WriteString(browseStatus.Render(fmt.Sprintf("page %d/%d", m.page+1, m.maxPage+1)))
	b.WriteString("\n")
	return b.String()
}

func (m browseModel) viewDetail() string {
	d := m.detail
	lines := []string{
		browseHeader.Render(strings.ToUpper(d.Name)),
		fmt.Sprintf("Buy now:   %s (%d available)", formatBucks(d.InstaBuyPrice), d.SellVolume),
		fmt.Sprintf("Sell now:  %s (%d wanted)", formatBucks(d.InstaSellPrice), d.BuyVolume),
	}
	if d.Edition != 0 {
		lines = append(lines, fmt.Sprintf("Edition:   #%d", d.Edition))
	}
	return browseDetail.Render(strings.Join(lines, "\n")) + "\n"
}

func (m browseModel) fetchOverview(page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		raw, err := m.client.Overview(ctx, page)
		if err != nil {
			return browseErrMsg{err}
		}
		out, err := decodeInto[overviewPayload](raw)
		if err != nil {
			return browseErrMsg{err}
		}
		return overviewMsg{out}
	}
}

func (m browseModel) fetchDetail(ref itemRef) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		raw, err := m.client.ItemDetail(ctx, ref.itemType, ref.itemID, 0)
		if err != nil {
			return browseErrMsg{err}
		}
		out, err := decodeInto[itemPayload](raw)
		if err != nil {
			return browseErrMsg{err}
		}
		return detailMsg{out}
	}
}

func (m browseModel) fetchCatalog() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		raw, err := m.client.Catalog(ctx)
		if err != nil {
			return browseErrMsg{err}
		}
		out, err := decodeInto[catalogPayload](raw)
		if err != nil {
			return browseErrMsg{err}
		}
		var refs []itemRef
		for itemType, entries := range out.Items {
			for _, e := range entries {
				refs = append(refs, itemRef{e.Name, itemType, e.ID})
			}
		}
		return catalogMsg{refs}
	}
}
