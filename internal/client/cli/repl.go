package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Find(ctx context.Context) error
	Search(ctx context.Context, text string) error
	Profile(ctx context.Context, uniqueID string) error
	Settings(ctx context.Context) error
	Avatar(ctx context.Context, path string) error
	Projects(ctx context.Context) error
	AddProject(ctx context.Context) error
	EditProject(ctx context.Context, id int64) error
	DeleteProject(ctx context.Context, id int64) error
}

const (
	helpAnonymous = "Available commands: register, login, find, search <text>, profile <id>, exit"
	helpSignedIn  = "Available commands: whoami, find, search <text>, profile <id>, settings, avatar <path>, " +
		"projects, addproject, editproject <id>, delproject <id>, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the client.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done or when the user types
// "exit" or "quit".
//
// Errors returned by command handlers are printed and the loop continues;
// nothing a command does is fatal.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("sos %s > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "whoami":
			cmdErr = a.WhoAmI(ctx)

		case "find":
			cmdErr = a.Find(ctx)

		case "search":
			if len(args) == 0 {
				printlnFn("Usage: search <text>")
				continue
			}
			cmdErr = a.Search(ctx, strings.Join(args, " "))

		case "profile":
			if len(args) != 1 {
				printlnFn("Usage: profile <id>")
				continue
			}
			cmdErr = a.Profile(ctx, args[0])

		case "settings":
			cmdErr = a.Settings(ctx)

		case "avatar":
			if len(args) == 0 {
				printlnFn("Usage: avatar <path>")
				continue
			}
			cmdErr = a.Avatar(ctx, strings.Join(args, " "))

		case "projects":
			cmdErr = a.Projects(ctx)

		case "addproject":
			cmdErr = a.AddProject(ctx)

		case "editproject", "delproject":
			id, ok := projectID(args)
			if !ok {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			if cmd == "editproject" {
				cmdErr = a.EditProject(ctx, id)
			} else {
				cmdErr = a.DeleteProject(ctx, id)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}

func projectID(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
