package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/siteofsites/internal/client/models"
	"github.com/sahilm/fuzzy"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	matchStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	avatarStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))
)

// avatarBadge stands in for the picture: the nickname's initial, marked when
// an image is set.
func avatarBadge(nickname, avatar string) string {
	badge := avatarStyle.Render(models.Initial(nickname))
	if avatar != "" {
		badge += dimStyle.Render(" [img]")
	}
	return badge
}

func renderProfile(u *models.UserSummary, own bool) string {
	head := avatarBadge(u.Nickname, u.Avatar) + " " + titleStyle.Render(u.Nickname)
	if own {
		head += dimStyle.Render(" (you)")
	}

	lines := []string{head, dimStyle.Render("@" + u.UniqueID)}
	if own && u.Email != "" {
		lines = append(lines, u.Email)
	}
	if u.Description != "" {
		lines = append(lines, "", u.Description)
	}
	if !u.CreatedAt.IsZero() {
		lines = append(lines, "", dimStyle.Render("Member since "+u.CreatedAt.Date()))
	}
	if len(u.Projects) > 0 {
		lines = append(lines, "", titleStyle.Render("Projects"), renderProjects(u.Projects))
	}
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderProjects(ps []models.Project) string {
	if len(ps) == 0 {
		return dimStyle.Render("No projects yet")
	}
	rows := make([]string, 0, len(ps))
	for _, p := range ps {
		row := fmt.Sprintf("#%d %s", p.ID, titleStyle.Render(p.Title))
		if p.Description != "" {
			row += " " + dimStyle.Render("- "+firstLine(p.Description))
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

func renderResults(rs []models.UserLite, query string) string {
	if len(rs) == 0 {
		return dimStyle.Render("No users found")
	}
	rows := make([]string, 0, len(rs))
	for _, u := range rs {
		rows = append(rows, fmt.Sprintf("%s %s %s", avatarBadge(u.Nickname, u.Avatar), highlight(u.Nickname, query), dimStyle.Render("@"+u.UniqueID)))
	}
	return strings.Join(rows, "\n")
}

// highlight marks the runes of name that fuzzily match query.
func highlight(name, query string) string {
	idx := matchedRunes(name, query)
	if len(idx) == 0 {
		return name
	}
	return lipgloss.StyleRunes(name, idx, matchStyle, lipgloss.NewStyle())
}

// matchedRunes returns the rune positions of name matched by query.
func matchedRunes(name, query string) []int {
	if query == "" {
		return nil
	}
	matches := fuzzy.Find(query, []string{name})
	if len(matches) == 0 {
		return nil
	}

	// fuzzy reports byte offsets; lipgloss wants rune positions.
	byByte := make(map[int]bool, len(matches[0].MatchedIndexes))
	for _, i := range matches[0].MatchedIndexes {
		byByte[i] = true
	}
	var runes []int
	pos := 0
	for b := range name {
		if byByte[b] {
			runes = append(runes, pos)
		}
		pos++
	}
	return runes
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
