package tui

import (
	"fmt"
	"strings"

	"github.com/tatianab/keepsake/internal/engine"
)

type commandKind int

const (
	cmdAction commandKind = iota
	cmdGo
	cmdSave
	cmdLoad
	cmdList
	cmdHelp
	cmdQuit
)

type command struct {
	kind   commandKind
	action engine.Action
	arg    string
}

const defaultSaveName = "current"

// parseCommand reads one line typed by the player. Slash commands control the
// program; everything else is a context change or a game action.
func parseCommand(input string) (command, error) {
	input = strings.TrimSpace(input)
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("type a command, or /help")
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		return command{kind: cmdQuit}, nil
	case "/help", "help":
		return command{kind: cmdHelp}, nil
	case "/restart":
		return command{kind: cmdAction, action: engine.ResetSession{}}, nil
	case "/save":
		return command{kind: cmdSave, arg: orDefault(arg)}, nil
	case "/load":
		return command{kind: cmdLoad, arg: orDefault(arg)}, nil
	case "/saves":
		return command{kind: cmdList}, nil
	case "go", "/go", "enter":
		if arg == "" {
			return command{}, fmt.Errorf("go where?")
		}
		return command{kind: cmdGo, arg: canonicalContext(arg)}, nil
	}

	a, err := engine.ParseAction(input)
	if err != nil {
		return command{}, err
	}
	return command{kind: cmdAction, action: a}, nil
}

func orDefault(name string) string {
	if name == "" {
		return defaultSaveName
	}
	return name
}

var knownContexts = map[string]string{
	"mainmenu": "MainMenu",
	"menu":     "MainMenu",
	"home":     "Home",
	"gallery":  "Gallery",
	"shop":     "Shop",
}

func canonicalContext(name string) string {
	if c, ok := knownContexts[strings.ToLower(name)]; ok {
		return c
	}
	return name
}
