package bot

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"multi-timer/internal/model"
	"multi-timer/internal/service"
)

const (
	cbStart    = "start"
	cbPause    = "pause"
	cbReset    = "reset"
	cbStartAll = "startall"
	cbPauseAll = "pauseall"
	cbResetAll = "resetall"
	cbClose    = "close"

	cbClosePrefix = cbClose + ":"

	// Telegram rejects callback data longer than this many bytes.
	maxCallbackData = 64
)

var callbackActions = map[string]bool{
	cbStart:    true,
	cbPause:    true,
	cbReset:    true,
	cbStartAll: true,
	cbPauseAll: true,
	cbResetAll: true,
	cbClose:    true,
}

func callbackData(action, arg string) (string, bool) {
	data := action + ":" + arg
	return data, len(data) <= maxCallbackData
}

func parseCallback(data string) (string, string, bool) {
	action, arg, ok := strings.Cut(data, ":")
	if !ok || !callbackActions[action] || arg == "" {
		return "", "", false
	}
	return action, arg, true
}

// renderTimerList formats the grouped roster. markup is nil when there is
// nothing to control.
func renderTimerList(groups []model.Group) (string, *tgbotapi.InlineKeyboardMarkup) {
	if len(groups) == 0 {
		return "You have no timers yet. Add one with /newtimer.", nil
	}

	var builder strings.Builder
	builder.WriteString("⏱ <b>Timers</b>\n\n")

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, group := range groups {
		builder.WriteString(fmt.Sprintf("📂 <b>%s</b>\n", escape(group.Category)))
		for _, timer := range group.Timers {
			builder.WriteString(formatTimer(timer))
		}
		builder.WriteByte('\n')

		if row := groupRow(group.Category); row != nil {
			rows = append(rows, row)
		}
		for _, timer := range group.Timers {
			rows = append(rows, timerRow(timer))
		}
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return strings.TrimSpace(builder.String()), &markup
}

func formatTimer(timer model.Timer) string {
	return fmt.Sprintf("%s %s — %s / %s · %s\n",
		statusIcon(timer.Status),
		escape(timer.Name),
		service.FormatSeconds(timer.RemainingTime),
		service.FormatSeconds(timer.Duration),
		timer.Status,
	)
}

func statusIcon(status model.Status) string {
	switch status {
	case model.StatusRunning:
		return "▶️"
	case model.StatusPaused:
		return "⏸"
	case model.StatusCompleted:
		return "✅"
	default:
		return "⚪"
	}
}

// groupRow holds the bulk buttons of a category. Categories too long to fit
// in callback data get no bulk buttons.
func groupRow(category string) []tgbotapi.InlineKeyboardButton {
	startData, ok := callbackData(cbStartAll, category)
	if !ok {
		return nil
	}
	pauseData, _ := callbackData(cbPauseAll, category)
	resetData, ok := callbackData(cbResetAll, category)
	if !ok {
		return nil
	}
	label := shortTitle(category, 12)
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("▶️ All "+label, startData),
		tgbotapi.NewInlineKeyboardButtonData("⏸ All", pauseData),
		tgbotapi.NewInlineKeyboardButtonData("↺ All", resetData),
	)
}

func timerRow(timer model.Timer) []tgbotapi.InlineKeyboardButton {
	label := shortTitle(timer.Name, 20)
	var toggle tgbotapi.InlineKeyboardButton
	if timer.Status == model.StatusRunning {
		data, _ := callbackData(cbPause, timer.ID)
		toggle = tgbotapi.NewInlineKeyboardButtonData("⏸ "+label, data)
	} else {
		data, _ := callbackData(cbStart, timer.ID)
		toggle = tgbotapi.NewInlineKeyboardButtonData("▶️ "+label, data)
	}
	resetData, _ := callbackData(cbReset, timer.ID)
	return tgbotapi.NewInlineKeyboardRow(
		toggle,
		tgbotapi.NewInlineKeyboardButtonData("↺ Reset", resetData),
	)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNew),
			tgbotapi.NewKeyboardButton(menuLabelTimers),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelLog),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

// categoryKeyboard offers existing categories, two per row.
func categoryKeyboard(categories []string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton
	for _, category := range categories {
		row = append(row, tgbotapi.NewKeyboardButton(category))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "cancel input" || value == "cancel"
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func capitalize(value string) string {
	if value == "" {
		return value
	}
	r, size := utf8.DecodeRuneInString(value)
	return string(unicode.ToUpper(r)) + value[size:]
}
