// Package render draws the feed and leaderboard as terminal text.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackmichael/karma-feed/internal/leaderboard"
	"github.com/blackmichael/karma-feed/internal/view"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

// Text shown in place of an empty or loading collection.
const (
	FeedLoading        = "Loading posts..."
	FeedEmpty          = "No posts yet. Be the first to post!"
	LeaderboardLoading = "Loading leaderboard..."
	LeaderboardEmpty   = "No activity yet"
	KarmaFormula       = "Karma = Post Likes × 5 + Comment Likes × 1"
)

const defaultWidth = 80

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	authorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	likedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	karmaStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	goldStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	silverStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	bronzeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	rankRestStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
)

// Renderer formats views for a terminal of a given width.
type Renderer struct {
	width int
}

// NewRenderer creates a Renderer. A non-positive width uses 80 columns.
func NewRenderer(width int) *Renderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &Renderer{width: width}
}

// Feed renders the loading line, the empty-state placeholder or every post
// with its comment tree.
func (r *Renderer) Feed(f *view.Feed) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Feed"))
	b.WriteString("\n\n")

	if f.Loading() {
		b.WriteString(subtleStyle.Render(FeedLoading))
		b.WriteString("\n")
		return b.String()
	}

	posts := f.Posts()
	if len(posts) == 0 {
		b.WriteString(subtleStyle.Render(FeedEmpty))
		b.WriteString("\n")
		return b.String()
	}

	for i, pv := range posts {
		if i > 0 {
			b.WriteString("\n")
		}
		r.post(&b, pv)
	}
	return b.String()
}

func (r *Renderer) post(b *strings.Builder, pv *view.PostView) {
	p := pv.Post()
	fmt.Fprintf(b, "%s %s %s\n",
		subtleStyle.Render(fmt.Sprintf("#%d", p.ID)),
		authorStyle.Render(p.Author.Username),
		subtleStyle.Render(formatDate(p.CreatedAt)),
	)
	b.WriteString(wordwrap.String(p.Content, r.width))
	b.WriteString("\n")
	fmt.Fprintf(b, "%s  %s\n",
		likes(pv.LikeCount(), pv.Liked()),
		subtleStyle.Render(fmt.Sprintf("%d comments", len(pv.Comments()))),
	)

	for _, cv := range pv.Comments() {
		r.comment(b, cv)
	}
}

// comment renders cv and then, recursively, its replies one level deeper.
func (r *Renderer) comment(b *strings.Builder, cv *view.CommentView) {
	c := cv.Comment()
	pad := uint(cv.Indent() + view.IndentWidth)
	width := r.width - int(pad)
	if width < 20 {
		width = 20
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s %s %s\n",
		subtleStyle.Render(fmt.Sprintf("#%d", c.ID)),
		authorStyle.Render(c.Author.Username),
		subtleStyle.Render(formatDate(c.CreatedAt)),
	)
	body.WriteString(wordwrap.String(c.Content, width))
	body.WriteString("\n")
	body.WriteString(likes(cv.LikeCount(), cv.Liked()))
	body.WriteString("\n")

	b.WriteString(indent.String(body.String(), pad))

	for _, reply := range cv.Replies() {
		r.comment(b, reply)
	}
}

// Leaderboard renders ranked entries in the order given. Rank is the
// position in the snapshot.
func (r *Renderer) Leaderboard(snap leaderboard.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Leaderboard"))
	b.WriteString("\n")
	b.WriteString(subtleStyle.Render("Top contributors (24h)"))
	b.WriteString("\n\n")

	switch {
	case snap.Loading:
		b.WriteString(subtleStyle.Render(LeaderboardLoading))
		b.WriteString("\n")
	case len(snap.Entries) == 0:
		b.WriteString(subtleStyle.Render(LeaderboardEmpty))
		b.WriteString("\n")
	default:
		nameWidth := 0
		for _, e := range snap.Entries {
			nameWidth = max(nameWidth, lipgloss.Width(e.Username))
		}
		for i, e := range snap.Entries {
			rank := i + 1
			fmt.Fprintf(&b, "%s %-*s %s\n",
				rankStyle(rank).Render(fmt.Sprintf("%3d.", rank)),
				nameWidth, e.Username,
				karmaStyle.Render(fmt.Sprintf("%d ★", e.Karma)),
			)
		}
	}

	b.WriteString("\n")
	b.WriteString(subtleStyle.Render(KarmaFormula))
	b.WriteString("\n")
	return b.String()
}

func rankStyle(rank int) lipgloss.Style {
	switch rank {
	case 1:
		return goldStyle
	case 2:
		return silverStyle
	case 3:
		return bronzeStyle
	default:
		return rankRestStyle
	}
}

func likes(count int, liked bool) string {
	if liked {
		return likedStyle.Render(fmt.Sprintf("♥ %d (liked)", count))
	}
	return fmt.Sprintf("♡ %d", count)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006")
}
