package views

import (
	"fmt"
	"strings"
)

type TaskRowData struct {
	Title     string
	Priority  string
	Category  string
	Bucket    string
	Due       string
	Completed bool
}

// TaskTitle is the first line of a list row.
func TaskTitle(d TaskRowData) string {
	box := "[ ]"
	title := d.Title
	if d.Completed {
		box = "[x]"
		title = doneStyle.Render(title)
	}
	return fmt.Sprintf("%s %s %s", box, priorityBadge(d.Priority), title)
}

func TaskDescription(d TaskRowData) string {
	parts := make([]string, 0, 3)
	if d.Category != "" {
		parts = append(parts, d.Category)
	}
	if d.Due != "" {
		due := d.Bucket + " " + d.Due
		if d.Bucket == "Overdue" && !d.Completed {
			due = dangerStyle.Render(due)
		}
		parts = append(parts, due)
	}
	if len(parts) == 0 {
		return mutedStyle.Render("no category | no date")
	}
	return strings.Join(parts, " | ")
}

func priorityBadge(p string) string {
	switch p {
	case "HIGH":
		return dangerStyle.Render("!!!")
	case "MEDIUM":
		return warnStyle.Render("!! ")
	default:
		return okStyle.Render("!  ")
	}
}

type FilterBarData struct {
	Status    string
	Priority  string
	Category  string
	Date      string
	SortBy    string
	SortOrder string
	Search    string
	Visible   int
	Total     int
}

func RenderFilterBar(data FilterBarData) string {
	line := fmt.Sprintf("status:%s priority:%s category:%s date:%s | sort:%s %s | %d/%d",
		data.Status, data.Priority, data.Category, data.Date, data.SortBy, data.SortOrder, data.Visible, data.Total)
	if data.Search != "" {
		line += fmt.Sprintf(" | search:%q", data.Search)
	}
	return mutedStyle.Render(line)
}

type ListPanelData struct {
	FilterBar string
	ListView  string
	Empty     bool
	Loading   string
}

func RenderListPanel(data ListPanelData) string {
	var b strings.Builder
	b.WriteString("todos:\n")
	b.WriteString(data.FilterBar + "\n")
	if data.Loading != "" {
		b.WriteString(data.Loading + "\n")
	}
	if data.Empty {
		b.WriteString("(nothing matches)\n")
		return strings.TrimSpace(b.String())
	}
	b.WriteString(data.ListView)
	return strings.TrimSpace(b.String())
}

type DetailData struct {
	ID              string
	Title           string
	Priority        string
	Category        string
	Bucket          string
	Due             string
	Created         string
	Updated         string
	Completed       bool
	DescriptionView string
}

func RenderDetailPanel(data DetailData) string {
	if strings.TrimSpace(data.ID) == "" {
		return "details:\n(no selection)"
	}
	status := "active"
	if data.Completed {
		status = "completed"
	}
	category := data.Category
	if category == "" {
		category = "-"
	}
	due := "-"
	if data.Due != "" {
		due = data.Due + " (" + data.Bucket + ")"
	}
	out := fmt.Sprintf("details:\n%s\nid: %s\nstatus: %s\npriority: %s\ncategory: %s\ndue: %s\ncreated: %s\nupdated: %s",
		data.Title, data.ID, status, data.Priority, category, due, data.Created, data.Updated)
	if data.DescriptionView != "" {
		out += "\n\n" + data.DescriptionView
	}
	return out
}

type CountRow struct {
	Label   string
	Count   int
	Percent int
}

type DayRow struct {
	Label     string
	Created   int
	Completed int
}

type DashboardData struct {
	Total          int
	Completed      int
	Active         int
	Overdue        int
	CompletionRate float64
	ProgressView   string
	Categories     []CountRow
	Priorities     []CountRow
	Week           []DayRow
	Streak         int
	Productivity   int
}

func RenderDashboard(data DashboardData) string {
	var b strings.Builder
	b.WriteString("dashboard:\n")
	b.WriteString(fmt.Sprintf("total: %d | active: %d | completed: %d | overdue: %d\n", data.Total, data.Active, data.Completed, data.Overdue))
	b.WriteString(fmt.Sprintf("completion: %s %.1f%%\n", data.ProgressView, data.CompletionRate))
	b.WriteString(fmt.Sprintf("streak: %d day(s) | productivity: %d%%\n", data.Streak, data.Productivity))

	b.WriteString("\ncategories:\n")
	if len(data.Categories) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, c := range data.Categories {
		b.WriteString(fmt.Sprintf("  %-16s %3d %s %d%%\n", c.Label, c.Count, bar(c.Percent, 20), c.Percent))
	}

	b.WriteString("\nactive by priority:\n")
	if len(data.Priorities) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, p := range data.Priorities {
		b.WriteString(fmt.Sprintf("  %-8s %3d %s %d%%\n", p.Label, p.Count, bar(p.Percent, 20), p.Percent))
	}

	b.WriteString("\nlast 7 days (created/completed):\n")
	for _, d := range data.Week {
		b.WriteString(fmt.Sprintf("  %s %2d/%-2d %s\n", d.Label, d.Created, d.Completed, strings.Repeat("+", d.Completed)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func bar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func RenderCommandPalette(active bool, inputView string) string {
	if !active {
		return ""
	}
	return "command:\n" + inputView + "\n" + mutedStyle.Render("/add /filter /sort /search /clear /done /rm")
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help (%s):\n%s\n\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
