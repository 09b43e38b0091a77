package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"multi-timer/internal/model"
	"multi-timer/internal/repository"
	"multi-timer/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageDuration
	stageCategory
)

const (
	btnCancelDialog = "⏪ Cancel input"
	menuLabelNew    = "➕ New timer"
	menuLabelTimers = "⏱ Timers"
	menuLabelLog    = "🏁 History"
	menuLabelHelp   = "ℹ️ Help"

	historyLimit = 30
)

type conversationState struct {
	stage conversationStage
	input service.TimerInput
}

// sender is the part of the Telegram client used to talk to chats.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot is the chat front end: it renders registry state and dispatches intents.
type Bot struct {
	api           sender
	client        *tgbotapi.BotAPI
	subscribers   *repository.SubscriberRepository
	timerSvc      *service.TimerService
	reportSvc     *service.ReportService
	conversations map[int64]*conversationState
	mu            sync.Mutex
	notifyTimeout time.Duration
}

func New(token string, subscribers *repository.SubscriberRepository, timerSvc *service.TimerService, reportSvc *service.ReportService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	b := newBot(api, subscribers, timerSvc, reportSvc)
	b.client = api
	return b, nil
}

func newBot(api sender, subscribers *repository.SubscriberRepository, timerSvc *service.TimerService, reportSvc *service.ReportService) *Bot {
	return &Bot{
		api:           api,
		subscribers:   subscribers,
		timerSvc:      timerSvc,
		reportSvc:     reportSvc,
		conversations: make(map[int64]*conversationState),
		notifyTimeout: 30 * time.Second,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.client == nil {
		return errors.New("bot has no telegram client")
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.client.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.client.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return ctx.Err()
}

// HandleEvent is a registry listener. Completions are announced to every
// subscriber off the dispatch path.
func (b *Bot) HandleEvent(event service.Event) {
	if event.Action.Type != service.ActionCompleteTimer || !event.Change.History {
		return
	}
	timerID := event.Action.TimerID
	entry := event.Action.Log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), b.notifyTimeout)
		defer cancel()
		if err := b.notifyCompletion(ctx, timerID, entry); err != nil {
			log.Printf("notify completion: %v", err)
		}
	}()
}

func (b *Bot) notifyCompletion(ctx context.Context, timerID string, entry model.CompletionLogEntry) error {
	subs, err := b.subscribers.ListActive(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("🎉 Congrats! Timer «%s» completed!\n<i>%s</i>", escape(entry.Name), escape(entry.CompletedAt))
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Close", cbClosePrefix+timerID),
		),
	)
	for _, sub := range subs {
		msg := tgbotapi.NewMessage(sub.ChatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.ReplyMarkup = markup
		if _, err := b.api.Send(msg); err != nil {
			log.Printf("send completion to %d: %v", sub.ChatID, err)
		}
	}
	return nil
}

// SendDigests sends the roster summary to every subscriber.
func (b *Bot) SendDigests(ctx context.Context) error {
	subs, err := b.subscribers.ListActive(ctx)
	if err != nil {
		return err
	}
	text := b.reportSvc.Digest(time.Now())
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := b.sendText(sub.ChatID, text); err != nil {
			log.Printf("send digest to %d: %v", sub.ChatID, err)
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Timer creation cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /newtimer to add a timer or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "newtimer":
		return b.startNewTimerConversation(ctx, msg)
	case "timers":
		return b.sendTimerList(msg.Chat.ID)
	case "history":
		return b.handleHistory(msg)
	case "reload":
		b.timerSvc.Reload(ctx)
		return b.sendTimerList(msg.Chat.ID)
	case "digest":
		return b.sendText(msg.Chat.ID, b.reportSvc.Digest(time.Now()))
	case "mute":
		return b.handleMute(ctx, msg, true)
	case "unmute":
		return b.handleMute(ctx, msg, false)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Timer creation cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureSubscriber(ctx, msg); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I run named countdown timers grouped by category.</b>\n\n%s", escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

const helpText = "Commands:\n" +
	"• /newtimer — add a timer step by step\n" +
	"• /timers — list timers with start, pause and reset buttons\n" +
	"• /history — completed timers\n" +
	"• /reload — reload timers from storage\n" +
	"• /digest — summary of all categories\n" +
	"• /mute, /unmute — completion notifications\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, "ℹ️ <b>Help</b>\n"+helpText)
}

func (b *Bot) handleMute(ctx context.Context, msg *tgbotapi.Message, muted bool) error {
	if _, err := b.ensureSubscriber(ctx, msg); err != nil {
		return err
	}
	if err := b.subscribers.SetMuted(ctx, msg.Chat.ID, muted); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Send /start first.")
		}
		return err
	}
	if muted {
		return b.sendText(msg.Chat.ID, "🔕 Completion notifications are off.")
	}
	return b.sendText(msg.Chat.ID, "🔔 Completion notifications are on.")
}

func (b *Bot) handleHistory(msg *tgbotapi.Message) error {
	entries := b.timerSvc.History()
	if len(entries) == 0 {
		return b.sendText(msg.Chat.ID, "No completed timers yet.")
	}
	start := 0
	if len(entries) > historyLimit {
		start = len(entries) - historyLimit
	}

	var builder strings.Builder
	builder.WriteString("🏁 <b>Completed timers</b>\n")
	for _, entry := range entries[start:] {
		builder.WriteString(fmt.Sprintf("🕒 %s\n   ✅ %s\n", escape(entry.Name), escape(entry.CompletedAt)))
	}
	if start > 0 {
		builder.WriteString(fmt.Sprintf("\n…and %d earlier", start))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) startNewTimerConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureSubscriber(ctx, msg); err != nil {
		return err
	}
	log.Printf("[info] start new timer conversation user=%d", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageName})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New timer.\n<b>Step 1:</b> what is it called?", cancelKeyboard())
}

func (b *Bot) handleConversation(msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The name cannot be empty.", cancelKeyboard())
		}
		state.input.Name = text
		state.stage = stageDuration
		return b.sendWithReplyMarkup(msg.Chat.ID, "⏱ <b>Step 2:</b> duration in seconds, e.g. <code>180</code>.", cancelKeyboard())
	case stageDuration:
		state.input.Duration = text
		if _, err := service.ParseDuration(text); err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, validationMessage(err), cancelKeyboard())
		}
		state.stage = stageCategory
		return b.sendWithReplyMarkup(msg.Chat.ID, "📂 <b>Step 3:</b> pick a category or type a new one.", categoryKeyboard(b.timerSvc.Categories()))
	case stageCategory:
		state.input.Category = text
		timer, err := b.timerSvc.CreateTimer(state.input)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, validationMessage(err), categoryKeyboard(b.timerSvc.Categories()))
		}
		b.clearConversation(msg.From.ID)
		log.Printf("[info] timer created id=%s user=%d", timer.ID, msg.From.ID)

		summary := fmt.Sprintf("✅ <b>Timer saved</b>\n• <b>Name:</b> %s\n• <b>Duration:</b> %s\n• <b>Category:</b> %s",
			escape(timer.Name), service.FormatSeconds(timer.Duration), escape(timer.Category))
		reply := tgbotapi.NewMessage(msg.Chat.ID, summary)
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		if _, err := b.api.Send(reply); err != nil {
			return err
		}
		return b.sendTimerList(msg.Chat.ID)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Try /newtimer again.")
	}
}

func validationMessage(err error) string {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return "⚠️ " + escape(capitalize(verr.Message)) + "."
	}
	return "⚠️ " + escape(err.Error())
}

func (b *Bot) sendTimerList(chatID int64) error {
	text, markup := renderTimerList(b.timerSvc.Groups())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = *markup
	} else {
		msg.ReplyMarkup = mainMenuKeyboard()
	}
	_, err := b.api.Send(msg)
	return err
}

// refreshTimerList edits a previously sent list in place.
func (b *Bot) refreshTimerList(chatID int64, messageID int) {
	text, markup := renderTimerList(b.timerSvc.Groups())
	var edit tgbotapi.EditMessageTextConfig
	if markup != nil {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, *markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Request(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
		log.Printf("refresh timer list: %v", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	action, arg, ok := parseCallback(cb.Data)
	if !ok {
		b.ack(cb.ID, "")
		return nil
	}
	log.Printf("[info] callback %s user=%d arg=%q", action, cb.From.ID, arg)

	var changed bool
	switch action {
	case cbStart:
		changed = b.timerSvc.Start(arg)
	case cbPause:
		changed = b.timerSvc.Pause(arg)
	case cbReset:
		changed = b.timerSvc.Reset(arg)
	case cbStartAll:
		changed = b.timerSvc.StartAll(arg)
	case cbPauseAll:
		changed = b.timerSvc.PauseAll(arg)
	case cbResetAll:
		changed = b.timerSvc.ResetAll(arg)
	case cbClose:
		b.timerSvc.Reset(arg)
		b.ack(cb.ID, "")
		edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
		if _, err := b.api.Request(edit); err != nil {
			log.Printf("close completion: %v", err)
		}
		return nil
	}

	if changed {
		b.ack(cb.ID, "")
	} else {
		b.ack(cb.ID, "Nothing to do")
	}
	b.refreshTimerList(cb.Message.Chat.ID, cb.Message.MessageID)
	return nil
}

func (b *Bot) ack(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("callback ack: %v", err)
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNew):
		return true, b.startNewTimerConversation(ctx, msg)
	case strings.ToLower(menuLabelTimers):
		return true, b.sendTimerList(msg.Chat.ID)
	case strings.ToLower(menuLabelLog):
		return true, b.handleHistory(msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) ensureSubscriber(ctx context.Context, msg *tgbotapi.Message) (*model.Subscriber, error) {
	return b.subscribers.Upsert(ctx, msg.Chat.ID, msg.From.FirstName, msg.From.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeHTML, s)
}
