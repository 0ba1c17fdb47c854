package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/blackmichael/karma-feed/internal/domain"
	"github.com/blackmichael/karma-feed/internal/feed"
	"github.com/blackmichael/karma-feed/internal/leaderboard"
	"github.com/blackmichael/karma-feed/internal/session"
	"github.com/blackmichael/karma-feed/internal/view"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("karmafeed "+name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login")
	username := fs.String("username", envOrDefault("KARMAFEED_USERNAME", ""), "account username")
	password := fs.String("password", envOrDefault("KARMAFEED_PASSWORD", ""), "account password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: -username and -password are required (or set KARMAFEED_USERNAME and KARMAFEED_PASSWORD)", errUsage)
	}

	if err := a.session.Login(ctx, *username, *password); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", a.session.User().Username)
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register")
	var form session.RegistrationForm
	fs.StringVar(&form.Username, "username", "", "account username")
	fs.StringVar(&form.Email, "email", "", "email address")
	fs.StringVar(&form.Password, "password", envOrDefault("KARMAFEED_PASSWORD", ""), "password (at least 8 characters)")
	fs.StringVar(&form.Password2, "password2", "", "password confirmation")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	err := a.session.Register(ctx, form)
	var fields domain.FieldErrors
	var authErr *session.AuthError
	switch {
	case errors.As(err, &fields):
		printFieldErrors(a.out, fields)
		return errors.New("registration rejected")
	case errors.As(err, &authErr) && len(authErr.Fields) > 0:
		printFieldErrors(a.out, authErr.Fields)
		return errors.New("registration rejected")
	case err != nil:
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s! You are signed in.\n", a.session.User().Username)
	return nil
}

func printFieldErrors(w io.Writer, fields domain.FieldErrors) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, fields[k])
	}
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	user := a.session.User()
	if user == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}

	fmt.Fprintf(a.out, "%s\n", user.Username)
	if name := strings.TrimSpace(user.FirstName + " " + user.LastName); name != "" {
		fmt.Fprintf(a.out, "  name:  %s\n", name)
	}
	if user.Email != "" {
		fmt.Fprintf(a.out, "  email: %s\n", user.Email)
	}
	return nil
}

// loadFeed mounts a feed controller and returns the view over it. Reading
// needs no session; writes are authorised by the backend.
func loadFeed(ctx context.Context, a *app) *view.Feed {
	posts := feed.NewController(a.client, a.logger)
	posts.Mount(ctx)
	return view.NewFeed(posts, a.client, a.logger)
}

func runFeed(ctx context.Context, a *app, _ []string) error {
	f := loadFeed(ctx, a)
	fmt.Fprint(a.out, a.renderer.Feed(f))
	return nil
}

func runPost(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("post")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	f := loadFeed(ctx, a)

	f.Composer.Toggle()
	f.Composer.SetDraft(strings.Join(fs.Args(), " "))
	if err := f.SubmitPost(ctx); err != nil {
		return err
	}
	fmt.Fprint(a.out, a.renderer.Feed(f))
	return nil
}

func runComment(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("comment")
	postID := fs.Int64("post", 0, "id of the post to comment on")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *postID <= 0 {
		return fmt.Errorf("%w: -post is required", errUsage)
	}
	f := loadFeed(ctx, a)

	pv := f.Post(*postID)
	if pv == nil {
		return fmt.Errorf("post %d not found", *postID)
	}
	pv.CommentForm.Toggle()
	pv.CommentForm.SetDraft(strings.Join(fs.Args(), " "))
	if err := pv.SubmitComment(ctx); err != nil {
		return err
	}
	fmt.Fprint(a.out, a.renderer.Feed(f))
	return nil
}

func runReply(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("reply")
	commentID := fs.Int64("comment", 0, "id of the comment to reply to")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *commentID <= 0 {
		return fmt.Errorf("%w: -comment is required", errUsage)
	}
	f := loadFeed(ctx, a)

	cv := f.Comment(*commentID)
	if cv == nil {
		return fmt.Errorf("comment %d not found", *commentID)
	}
	cv.ReplyForm.Toggle()
	cv.ReplyForm.SetDraft(strings.Join(fs.Args(), " "))
	if err := cv.SubmitReply(ctx); err != nil {
		return err
	}
	fmt.Fprint(a.out, a.renderer.Feed(f))
	return nil
}

func runLike(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("like")
	postID := fs.Int64("post", 0, "id of the post to like")
	commentID := fs.Int64("comment", 0, "id of the comment to like")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if (*postID > 0) == (*commentID > 0) {
		return fmt.Errorf("%w: exactly one of -post or -comment is required", errUsage)
	}
	f := loadFeed(ctx, a)

	if *postID > 0 {
		pv := f.Post(*postID)
		if pv == nil {
			return fmt.Errorf("post %d not found", *postID)
		}
		if err := pv.Like(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Liked post #%d (%s)\n", *postID, plural(f.Post(*postID).LikeCount(), "like"))
		return nil
	}

	cv := f.Comment(*commentID)
	if cv == nil {
		return fmt.Errorf("comment %d not found", *commentID)
	}
	if err := cv.Like(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Liked comment #%d (%s)\n", *commentID, plural(f.Comment(*commentID).LikeCount(), "like"))
	return nil
}

func runLeaderboard(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("leaderboard")
	watch := fs.Bool("watch", false, "keep polling and redraw on every update")
	interval := fs.Duration("interval", a.cfg.LeaderboardInterval, "polling interval with -watch")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	poller := leaderboard.NewPoller(a.client, *interval, a.logger)
	if !*watch {
		if err := poller.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprint(a.out, a.renderer.Leaderboard(poller.Snapshot()))
		return nil
	}

	updates := poller.Subscribe()
	defer poller.Unsubscribe(updates)
	go poller.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap := <-updates:
			// Clear the screen and redraw from the top.
			fmt.Fprint(a.out, "\033[H\033[2J")
			fmt.Fprint(a.out, a.renderer.Leaderboard(snap))
		}
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
