package appstate

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mobile/event/key"
)

// Action names shared by key bindings, panel buttons and the shortcut bar.
const (
	actionSubmit      = "submit"
	actionImport      = "import"
	actionFocusURL    = "url"
	actionFocusNext   = "focus"
	actionBlur        = "blur"
	actionUndo        = "undo"
	actionRedo        = "redo"
	actionCopy        = "copy"
	actionPaste       = "paste"
	actionPasteImage  = "pasteimage"
	actionExport      = "export"
	actionClear       = "clear"
	actionDeselect    = "deselect"
	actionZoomIn      = "zoomin"
	actionZoomOut     = "zoomout"
	actionZoomReset   = "zoomreset"
	actionScrollLeft  = "left"
	actionScrollRight = "right"
	actionScrollUp    = "up"
	actionScrollDown  = "down"
	actionVoice       = "voice"
	actionDictate     = "dictate"
	actionViewPrompt  = "viewprompt"
	actionCode        = "code"
	actionQuit        = "quit"

	ratioPrefix = "ratio"
)

func ratioAction(i int) string { return ratioPrefix + strconv.Itoa(i+1) }

func ratioIndex(action string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(action, ratioPrefix))
	if err != nil || !strings.HasPrefix(action, ratioPrefix) || n < 1 {
		return 0, false
	}
	return n - 1, true
}

// KeyShortcut describes a keyboard combination that triggers an action.
// Either Rune or Code is set.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

var (
	// globalKeys work whatever has focus.
	globalKeys = map[KeyShortcut]string{
		{Code: key.CodeReturnEnter}:                           actionSubmit,
		{Code: key.CodeKeypadEnter}:                           actionSubmit,
		{Code: key.CodeTab}:                                   actionFocusNext,
		{Code: key.CodeF2}:                                    actionVoice,
		{Code: key.CodeF3}:                                    actionDictate,
		{Rune: 'z', Modifiers: key.ModControl}:                actionUndo,
		{Rune: 'y', Modifiers: key.ModControl}:                actionRedo,
		{Rune: 'z', Modifiers: key.ModControl | key.ModShift}: actionRedo,
		{Rune: 'c', Modifiers: key.ModControl}:                actionCopy,
		{Rune: 'v', Modifiers: key.ModControl}:                actionPaste,
		{Rune: 'v', Modifiers: key.ModControl | key.ModShift}: actionPasteImage,
		{Rune: 's', Modifiers: key.ModControl}:                actionExport,
		{Rune: 'l', Modifiers: key.ModControl}:                actionFocusURL,
		{Rune: 'p', Modifiers: key.ModControl}:                actionViewPrompt,
		{Rune: 'g', Modifiers: key.ModControl}:                actionCode,
		{Rune: 'n', Modifiers: key.ModControl}:                actionClear,
		{Rune: 'q', Modifiers: key.ModControl}:                actionQuit,
		{Rune: '=', Modifiers: key.ModControl}:                actionZoomIn,
		{Rune: '+', Modifiers: key.ModControl}:                actionZoomIn,
		{Rune: '+', Modifiers: key.ModControl | key.ModShift}: actionZoomIn,
		{Rune: '-', Modifiers: key.ModControl}:                actionZoomOut,
		{Rune: '0', Modifiers: key.ModControl}:                actionZoomReset,
	}

	// canvasKeys only apply while the canvas has focus, since the same keys
	// type text into the fields.
	canvasKeys = map[KeyShortcut]string{
		{Code: key.CodeEscape}:               actionDeselect,
		{Code: key.CodeLeftArrow}:            actionScrollLeft,
		{Code: key.CodeRightArrow}:           actionScrollRight,
		{Code: key.CodeUpArrow}:              actionScrollUp,
		{Code: key.CodeDownArrow}:            actionScrollDown,
		{Rune: '+'}:                          actionZoomIn,
		{Rune: '+', Modifiers: key.ModShift}: actionZoomIn,
		{Rune: '='}:                          actionZoomIn,
		{Rune: '-'}:                          actionZoomOut,
	}
)

func init() {
	for i := 0; i < 6; i++ {
		canvasKeys[KeyShortcut{Rune: rune('1' + i)}] = ratioAction(i)
	}
}

// resolveKey maps a key press to an action name for the given focus.
func resolveKey(e key.Event, f focus) (string, bool) {
	r := e.Rune
	if r <= 0 || !unicode.IsPrint(r) {
		r = codeRune(e.Code)
	}
	lookup := func(m map[KeyShortcut]string) (string, bool) {
		if r > 0 {
			if a, ok := m[KeyShortcut{Rune: unicode.ToLower(r), Modifiers: e.Modifiers}]; ok {
				return a, true
			}
		}
		a, ok := m[KeyShortcut{Code: e.Code, Modifiers: e.Modifiers}]
		return a, ok
	}
	if f != focusCanvas {
		switch e.Code {
		case key.CodeEscape:
			return actionBlur, true
		case key.CodeReturnEnter, key.CodeKeypadEnter:
			if f == focusURL {
				return actionImport, true
			}
		}
	}
	if a, ok := lookup(globalKeys); ok {
		return a, true
	}
	if f == focusCanvas {
		return lookup(canvasKeys)
	}
	return "", false
}

// codeRune recovers the rune of a letter, digit or zoom key for drivers
// that report control characters while Ctrl is held.
func codeRune(c key.Code) rune {
	switch {
	case c >= key.CodeA && c <= key.CodeZ:
		return 'a' + rune(c-key.CodeA)
	case c >= key.Code1 && c <= key.Code9:
		return '1' + rune(c-key.Code1)
	case c == key.Code0:
		return '0'
	case c == key.CodeEqualSign:
		return '='
	case c == key.CodeHyphenMinus:
		return '-'
	}
	return 0
}
