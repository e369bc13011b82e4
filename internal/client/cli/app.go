package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"authkeeper/internal/common"
)

// App is a small REPL over the identity API. A successful login or register
// keeps the issued token for subsequent whoami calls.
type App struct {
	client *Client
	token  string
}

func NewApp(serverAddr string) *App {
	return &App{client: NewClient(serverAddr)}
}

func (a *App) Run(ctx context.Context) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Commands: register, login, whoami, delete, quit")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		switch strings.TrimSpace(line) {
		case "register":
			a.register(ctx, reader)
		case "login":
			a.login(ctx, reader)
		case "whoami":
			a.whoami(ctx)
		case "delete":
			a.delete(ctx, reader)
		case "quit", "exit":
			return
		case "":
		default:
			fmt.Println("Unknown command")
		}
	}
}

func (a *App) register(ctx context.Context, reader *bufio.Reader) {
	email, err := getSimpleText(reader, "Enter email")
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	username, err := getSimpleText(reader, "Enter username")
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	password, err := getPassword()
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	profile, err := a.client.Register(ctx, email, username, password)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	a.rememberToken(profile.User.Token)
	fmt.Println("Success!")
}

func (a *App) login(ctx context.Context, reader *bufio.Reader) {
	email, err := getSimpleText(reader, "Enter email")
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	password, err := getPassword()
	if err != nil {
		fmt.Println(err.Error())
		return
	}
	defer common.WipeByteArray(password)

	profile, err := a.client.Login(ctx, email, password)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	a.rememberToken(profile.User.Token)
	fmt.Println("Success!")
}

func (a *App) whoami(ctx context.Context) {
	if a.token == "" {
		fmt.Println("Not logged in")
		return
	}

	profile, err := a.client.CurrentUser(ctx, a.token)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	fmt.Printf("%s (%s)\n", profile.User.Username, profile.User.Email)
	// The server renews the token on every verified read.
	a.rememberToken(profile.User.Token)
}

func (a *App) delete(ctx context.Context, reader *bufio.Reader) {
	email, err := getSimpleText(reader, "Enter email to delete")
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	if err := a.client.Delete(ctx, email); err != nil {
		fmt.Println(err.Error())
		return
	}
	fmt.Println("Success!")
}

func (a *App) rememberToken(token *string) {
	if token != nil {
		a.token = *token
	}
}

func getSimpleText(reader *bufio.Reader, prompt string) (string, error) {
	fmt.Println(prompt)
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// getPassword is a seam for tests.
var getPassword = func() ([]byte, error) {
	fmt.Println("Enter password")
	return term.ReadPassword(int(os.Stdin.Fd()))
}
