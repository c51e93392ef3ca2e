package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/orcamento/internal/config"
	"github.com/jask/orcamento/internal/database/repository"
	"github.com/jask/orcamento/internal/service"
)

// App is the interactive suggestion review loop.
type App struct {
	ctx      context.Context
	repos    Repos
	services Services
	cfg      config.Config

	state    appState
	pending  []reviewItem
	cursor   int
	status   string
	currency string

	categoryName    map[string]string // id -> name
	subcategoryName map[string]string

	// edit modal
	modal       modalState
	editField   editField
	editCat     string
	editSub     string
	editDesc    string
	editMonth   string
	summary     []repository.Total
	summaryBy   repository.GroupBy
	summaryDone bool
}

type Repos struct {
	Transactions *repository.TransactionRepo
	Suggestions  *repository.SuggestionRepo
	Categories   *repository.CategoryRepo
}

type Services struct {
	Suggester    *service.SuggesterService
	Consolidator *service.ConsolidatorService
	Reporter     *service.ReporterService
}

type appState string

const (
	viewReview  appState = "review"
	viewSummary appState = "summary"
)

type modalState string

const (
	modalNone modalState = ""
	modalEdit modalState = "edit"
)

type editField int

const (
	fieldCategory editField = iota
	fieldSubcategory
	fieldDescription
	fieldMonth
)

// reviewItem pairs a pending suggestion with its transaction and the resolved
// catalog names for display.
type reviewItem struct {
	Sugg repository.Suggestion
	Tx   repository.Transaction

	CategoryName    string
	SubcategoryName string
	Description     string
}

func New(ctx context.Context, cfg config.Config, repos Repos, services Services) *App {
	return &App{
		ctx:       ctx,
		repos:     repos,
		services:  services,
		cfg:       cfg,
		state:     viewReview,
		currency:  cfg.UI.CurrencySymbol,
		summaryBy: repository.GroupByCategory,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadCatalog(), a.loadPending())
}

func (a *App) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		entries, err := a.repos.Categories.ListCatalog(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return catalogMsg(entries)
	}
}

func (a *App) loadPending() tea.Cmd {
	return func() tea.Msg {
		suggs, err := a.repos.Suggestions.ListPending(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		items := make([]reviewItem, 0, len(suggs))
		for _, s := range suggs {
			tx, err := a.repos.Transactions.Get(a.ctx, s.TransactionID)
			if err != nil {
				return errMsg{err}
			}
			if tx == nil {
				continue
			}
			items = append(items, reviewItem{Sugg: s, Tx: *tx})
		}
		return pendingMsg(items)
	}
}

func (a *App) loadSummary() tea.Cmd {
	by := a.summaryBy
	return func() tea.Msg {
		totals, err := a.services.Reporter.Summary(a.ctx, repository.ExpenseFilters{}, by)
		if err != nil {
			return errMsg{err}
		}
		return summaryMsg(totals)
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		if a.state == viewSummary {
			return a.handleSummaryKey(m)
		}
		switch m.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "up", "k":
			if a.cursor > 0 {
				a.cursor--
			}
		case "down", "j", "s":
			if a.cursor < len(a.pending)-1 {
				a.cursor++
			}
		case "g":
			a.status = "generating suggestions..."
			return a, a.generateCmd()
		case "enter":
			if len(a.pending) == 0 {
				return a, nil
			}
			return a, a.acceptCmd(a.pending[a.cursor], false)
		case "e":
			if len(a.pending) == 0 {
				return a, nil
			}
			a.openEditModal(a.pending[a.cursor])
		case "r":
			if len(a.pending) == 0 {
				return a, nil
			}
			return a, a.rejectCmd(a.pending[a.cursor])
		case "o":
			a.state = viewSummary
			a.status = ""
			return a, a.loadSummary()
		}
	case catalogMsg:
		a.categoryName = make(map[string]string)
		a.subcategoryName = make(map[string]string)
		for _, entry := range m {
			a.categoryName[entry.Category.ID] = entry.Category.Name
			for _, sub := range entry.Subcategories {
				a.subcategoryName[sub.ID] = sub.Name
			}
		}
		a.resolveNames()
	case pendingMsg:
		a.pending = []reviewItem(m)
		if a.cursor >= len(a.pending) {
			a.cursor = 0
		}
		a.resolveNames()
	case summaryMsg:
		a.summary = []repository.Total(m)
		a.summaryDone = true
	case statusMsg:
		a.status = string(m)
	case errMsg:
		a.status = "error: " + m.Error()
	case reviewedMsg:
		a.status = string(m.status)
		return a, a.loadPending()
	}
	return a, nil
}

// resolveNames fills display names once both the catalog and the pending list
// have arrived.
func (a *App) resolveNames() {
	if a.categoryName == nil {
		return
	}
	for i := range a.pending {
		item := &a.pending[i]
		item.CategoryName, item.SubcategoryName = "", ""
		if item.Sugg.CategoryID != nil {
			item.CategoryName = a.categoryName[*item.Sugg.CategoryID]
		}
		if item.Sugg.SubcategoryID != nil {
			item.SubcategoryName = a.subcategoryName[*item.Sugg.SubcategoryID]
		}
		item.Description = item.Tx.Memo
		if item.Sugg.Description != nil && *item.Sugg.Description != "" {
			item.Description = *item.Sugg.Description
		}
	}
}

func referenceMonth(tx repository.Transaction) time.Time {
	if tx.ReferenceDate != nil {
		return *tx.ReferenceDate
	}
	return tx.Date
}

// commands
func (a *App) generateCmd() tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			res, err := a.services.Suggester.GenerateBatch(a.ctx)
			if err != nil {
				return errMsg{err}
			}
			return statusMsg(fmt.Sprintf("generated %d, failed %d", res.Generated, res.Failed))
		},
		a.loadPending(),
	)
}

func (a *App) acceptCmd(item reviewItem, edited bool) tea.Cmd {
	cat, sub, desc := item.CategoryName, item.SubcategoryName, item.Description
	month := referenceMonth(item.Tx)
	return func() tea.Msg {
		_, err := a.services.Consolidator.Consolidate(a.ctx, item.Tx.ID, cat, sub, desc, month, edited)
		if err != nil {
			return errMsg{err}
		}
		if edited {
			return reviewedMsg{status: "consolidated (edited)"}
		}
		return reviewedMsg{status: "consolidated"}
	}
}

func (a *App) editedAcceptCmd(item reviewItem) tea.Cmd {
	cat := strings.TrimSpace(a.editCat)
	sub := strings.TrimSpace(a.editSub)
	desc := strings.TrimSpace(a.editDesc)
	monthText := strings.TrimSpace(a.editMonth)
	return func() tea.Msg {
		month := referenceMonth(item.Tx)
		if monthText != "" {
			parsed, err := time.Parse("2006-01", monthText)
			if err != nil {
				return errMsg{fmt.Errorf("invalid month %q, want YYYY-MM", monthText)}
			}
			month = parsed
		}
		_, err := a.services.Consolidator.Consolidate(a.ctx, item.Tx.ID, cat, sub, desc, month, true)
		if err != nil {
			return errMsg{err}
		}
		return reviewedMsg{status: "consolidated (edited)"}
	}
}

func (a *App) rejectCmd(item reviewItem) tea.Cmd {
	return func() tea.Msg {
		if err := a.services.Consolidator.Reject(a.ctx, item.Tx.ID); err != nil {
			return errMsg{err}
		}
		return reviewedMsg{status: "suggestion rejected"}
	}
}

func (a *App) openEditModal(item reviewItem) {
	a.modal = modalEdit
	a.editField = fieldCategory
	a.editCat = item.CategoryName
	a.editSub = item.SubcategoryName
	a.editDesc = item.Description
	a.editMonth = referenceMonth(item.Tx).Format("2006-01")
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	buf := a.editBuffer()
	switch m.Type {
	case tea.KeyEsc:
		a.modal = modalNone
		return a, nil
	case tea.KeyTab, tea.KeyDown:
		if a.editField < fieldMonth {
			a.editField++
		}
		return a, nil
	case tea.KeyShiftTab, tea.KeyUp:
		if a.editField > fieldCategory {
			a.editField--
		}
		return a, nil
	case tea.KeyEnter:
		if a.editField < fieldMonth {
			a.editField++
			return a, nil
		}
		a.modal = modalNone
		if len(a.pending) == 0 {
			return a, nil
		}
		return a, a.editedAcceptCmd(a.pending[a.cursor])
	case tea.KeyBackspace, tea.KeyCtrlH, tea.KeyDelete:
		if len(*buf) > 0 {
			runes := []rune(*buf)
			*buf = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		*buf += " "
	case tea.KeyRunes:
		*buf += string(m.Runes)
	}
	return a, nil
}

func (a *App) editBuffer() *string {
	switch a.editField {
	case fieldSubcategory:
		return &a.editSub
	case fieldDescription:
		return &a.editDesc
	case fieldMonth:
		return &a.editMonth
	default:
		return &a.editCat
	}
}

func (a *App) handleSummaryKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "esc", "o":
		a.state = viewReview
		a.status = ""
		return a, nil
	case "c":
		a.summaryBy = repository.GroupByCategory
		return a, a.loadSummary()
	case "b":
		a.summaryBy = repository.GroupBySubcategory
		return a, a.loadSummary()
	case "a":
		a.summaryBy = repository.GroupByAccount
		return a, a.loadSummary()
	case "m":
		a.summaryBy = repository.GroupByMonth
		return a, a.loadSummary()
	}
	return a, nil
}

func (a *App) View() string {
	var body string
	switch a.state {
	case viewSummary:
		body = a.renderSummary()
	default:
		body = a.renderReview()
	}
	if a.modal != modalNone {
		body += "\n\n" + a.renderModal()
	}
	return body
}

// styles
var titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)

var dimStyle = lipgloss.NewStyle().Faint(true)

func (a *App) renderReview() string {
	title := titleStyle.Render("Suggestion Review")
	if len(a.pending) == 0 {
		out := title + "\nNo pending suggestions.\n[g] Generate  [o] Summary  [q] Quit"
		if a.status != "" {
			out += "\n" + a.status
		}
		return out
	}
	item := a.pending[a.cursor]
	out := fmt.Sprintf("%s\nSuggestion %d of %d\n\n", title, a.cursor+1, len(a.pending))
	out += fmt.Sprintf("  Date:   %s\n", item.Tx.Date.Format("2006-01-02"))
	out += fmt.Sprintf("  Memo:   %s\n", item.Tx.Memo)
	out += fmt.Sprintf("  Amount: %s%s\n\n", a.currency, item.Tx.Amount.StringFixed(2))
	out += fmt.Sprintf("  Category:    %s\n", orUnset(item.CategoryName))
	out += fmt.Sprintf("  Subcategory: %s\n", orUnset(item.SubcategoryName))
	out += fmt.Sprintf("  Description: %s\n", item.Description)
	out += dimStyle.Render(fmt.Sprintf("  Month:       %s", referenceMonth(item.Tx).Format("2006-01"))) + "\n"
	out += "\n[enter] Accept  [e] Edit  [r] Reject  [s] Skip  [g] Generate  [o] Summary  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderSummary() string {
	title := titleStyle.Render("Expense Summary - by " + string(a.summaryBy))
	out := title + "\n"
	if !a.summaryDone {
		out += "loading...\n"
	} else if len(a.summary) == 0 {
		out += "No consolidated expenses yet.\n"
	} else {
		for _, t := range a.summary {
			key := t.Key
			if key == "" {
				key = "[uncategorized]"
			}
			out += fmt.Sprintf("  %-28s %s%s\n", key, a.currency, t.Sum.Abs().StringFixed(2))
		}
	}
	out += "\n[c] Category  [b] Subcategory  [a] Account  [m] Month  [esc] Back  [q] Quit"
	if a.status != "" {
		out += "\n" + a.status
	}
	return out
}

func (a *App) renderModal() string {
	fields := []struct {
		label string
		value string
		field editField
	}{
		{"Category", a.editCat, fieldCategory},
		{"Subcategory", a.editSub, fieldSubcategory},
		{"Description", a.editDesc, fieldDescription},
		{"Month (YYYY-MM)", a.editMonth, fieldMonth},
	}
	out := titleStyle.Render("Edit suggestion") + "\n"
	for _, f := range fields {
		marker := " "
		if f.field == a.editField {
			marker = "▶"
		}
		out += fmt.Sprintf("%s %-16s %s\n", marker, f.label+":", f.value)
	}
	out += "[tab] Next field  [enter] Confirm  [esc] Cancel"
	return out
}

func orUnset(s string) string {
	if s == "" {
		return "[unset]"
	}
	return s
}

// messages
type pendingMsg []reviewItem

type catalogMsg []repository.CatalogEntry

type summaryMsg []repository.Total

type statusMsg string

type errMsg struct{ error }

type reviewedMsg struct{ status string }
