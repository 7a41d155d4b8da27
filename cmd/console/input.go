package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jwebster45206/immersion-engine/internal/runtime"
)

// localAction is handled by the console without calling the API.
type localAction string

const (
	actionNone localAction = ""
	actionHelp localAction = "help"
	actionCopy localAction = "copy"
	actionQuit localAction = "quit"
)

const helpText = `Commands:
• n, next            - Next waypoint
• p, back            - Previous waypoint
• goto <name>        - Fly to a waypoint
• jump <name>        - Jump to a waypoint without animation
• open <name>        - Open a link waypoint
• u, unlock <id>     - Pick up a lockable
• s, sound [name]    - Press the sound button
• ended [name]       - Report that a clip finished
• ready <name>       - Mark a teleporter as loaded
• m, mute [on|off]   - Toggle or set mute
• tap                - Pointer down (stops the preview rotation)
• frame [n]          - Advance n frames
• c, copy            - Copy the camera position (dev mode)
• /help              - Show this help
• Ctrl+N / Ctrl+P    - Next / previous
• Ctrl+C             - Quit
`

// parseInput turns a console line into an API command or a local action.
// current names the waypoint used when a command's name is omitted.
func parseInput(input, current string) (*runtime.Command, localAction, error) {
	fields := strings.Fields(strings.TrimSpace(input))
	if len(fields) == 0 {
		return nil, actionNone, nil
	}
	verb := strings.ToLower(fields[0])
	arg := strings.Join(fields[1:], " ")

	needArg := func(t runtime.CommandType) (*runtime.Command, localAction, error) {
		if arg == "" {
			return nil, actionNone, fmt.Errorf("%s needs a name", verb)
		}
		return &runtime.Command{Type: t, Waypoint: arg}, actionNone, nil
	}
	orCurrent := func(t runtime.CommandType) (*runtime.Command, localAction, error) {
		name := arg
		if name == "" {
			name = current
		}
		return &runtime.Command{Type: t, Waypoint: name}, actionNone, nil
	}

	switch verb {
	case "n", "next":
		return &runtime.Command{Type: runtime.CommandNext}, actionNone, nil
	case "p", "prev", "previous", "back":
		return &runtime.Command{Type: runtime.CommandPrevious}, actionNone, nil
	case "g", "goto":
		return needArg(runtime.CommandGoTo)
	case "jump":
		cmd, action, err := needArg(runtime.CommandGoTo)
		if cmd != nil {
			animate := false
			cmd.Animate = &animate
		}
		return cmd, action, err
	case "open":
		return needArg(runtime.CommandOpenLink)
	case "u", "unlock":
		if arg == "" {
			return nil, actionNone, fmt.Errorf("%s needs a lockable id", verb)
		}
		return &runtime.Command{Type: runtime.CommandUnlock, Lockable: arg}, actionNone, nil
	case "s", "sound":
		return orCurrent(runtime.CommandPressSound)
	case "ended":
		return orCurrent(runtime.CommandAudioEnded)
	case "ready":
		return needArg(runtime.CommandTeleporterReady)
	case "m", "mute":
		cmd := &runtime.Command{Type: runtime.CommandMute}
		switch strings.ToLower(arg) {
		case "":
		case "on", "true", "yes":
			muted := true
			cmd.Muted = &muted
		case "off", "false", "no":
			muted := false
			cmd.Muted = &muted
		default:
			return nil, actionNone, fmt.Errorf("mute takes on or off, not %q", arg)
		}
		return cmd, actionNone, nil
	case "tap", "click":
		return &runtime.Command{Type: runtime.CommandPointerDown}, actionNone, nil
	case "frame":
		frames := 1
		if arg != "" {
			n, err := strconv.Atoi(arg)
			if err != nil || n < 1 {
				return nil, actionNone, fmt.Errorf("frame takes a positive count, not %q", arg)
			}
			frames = n
		}
		return &runtime.Command{Type: runtime.CommandFrame, Frames: frames}, actionNone, nil
	case "c", "copy":
		return nil, actionCopy, nil
	case "/help", "help", "?":
		return nil, actionHelp, nil
	case "/quit", "quit", "exit":
		return nil, actionQuit, nil
	}
	return nil, actionNone, fmt.Errorf("unknown command %q, type /help", verb)
}
