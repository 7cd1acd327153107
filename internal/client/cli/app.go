// Package cli implements the interactive command loop of the StudyMate CLI.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tranqh/studymate/internal/client/api"
	"github.com/tranqh/studymate/internal/client/config"
)

type App struct {
	config       *config.Config
	client       *api.Client
	userName     string
	accessToken  string
	refreshToken string
	reader       *bufio.Reader
	out          *os.File
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		client: api.NewClient(c.ServerEndpointAddr),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.accessToken != ""
}

func (a *App) Ping(ctx context.Context) error {

	if err := a.client.Ping(ctx); err != nil {
		fmt.Fprintln(a.out, "Server unreachable:", err)
		return err
	}

	fmt.Fprintln(a.out, "Server is up")
	return nil
}

func (a *App) Register(ctx context.Context) error {

	userName, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	fullName, err := GetSimpleText(a.reader, "Full name (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}

	user, err := a.client.Register(ctx, userName, email, password, fullName)
	if err != nil {
		fmt.Fprintln(a.out, "Registration failed:", err)
		return err
	}

	fmt.Fprintf(a.out, "Registered %s, you can log in now\n", user.UserName)
	return nil
}

func (a *App) Login(ctx context.Context) error {

	userName, err := GetSimpleText(a.reader, "Username", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	scopeLine, err := GetSimpleText(a.reader, "Scopes (space separated, e.g. read write)", a.out)
	if err != nil {
		return err
	}

	bundle, err := a.client.Login(ctx, userName, password, strings.Fields(scopeLine))
	if err != nil {
		fmt.Fprintln(a.out, "Login failed:", err)
		return err
	}

	a.userName = userName
	a.accessToken = bundle.AccessToken
	a.refreshToken = bundle.RefreshToken
	fmt.Fprintf(a.out, "Logged in, access token valid for %d seconds\n", bundle.ExpiresIn)
	return nil
}

func (a *App) Whoami(ctx context.Context) error {

	user, err := a.client.Me(ctx, a.accessToken)
	if err != nil {
		fmt.Fprintln(a.out, "Request failed:", err)
		return err
	}

	fmt.Fprintf(a.out, "%s <%s> active=%v\n", user.UserName, user.Email, user.IsActive)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {

	bundle, err := a.client.Refresh(ctx, a.refreshToken)
	if err != nil {
		fmt.Fprintln(a.out, "Refresh failed:", err)
		return err
	}

	a.accessToken = bundle.AccessToken
	a.refreshToken = bundle.RefreshToken
	fmt.Fprintf(a.out, "Refreshed, access token valid for %d seconds\n", bundle.ExpiresIn)
	return nil
}

func (a *App) Logout(ctx context.Context) error {

	if err := a.client.Logout(ctx, a.accessToken, a.refreshToken); err != nil {
		fmt.Fprintln(a.out, "Logout failed:", err)
		return err
	}

	a.userName = ""
	a.accessToken = ""
	a.refreshToken = ""
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) LogoutAll(ctx context.Context) error {

	count, err := a.client.LogoutAll(ctx, a.accessToken)
	if err != nil {
		fmt.Fprintln(a.out, "Logout-all failed:", err)
		return err
	}

	a.userName = ""
	a.accessToken = ""
	a.refreshToken = ""
	fmt.Fprintf(a.out, "Revoked %d sessions\n", count)
	return nil
}

func (a *App) getStatus() string {
	if a.userName != "" {
		return fmt.Sprintf("(%s)", a.userName)
	}
	return ""
}

func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to StudyMate CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
