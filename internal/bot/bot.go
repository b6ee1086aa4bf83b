package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"hunnydu/internal/model"
	"hunnydu/internal/service"
)

const cbDonePrefix = "done:"

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot delivers completion notices and digests over Telegram and lets linked
// users tick off subtasks from the chat.
type Bot struct {
	api      sender
	updates  func(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	stop     func()
	families *service.FamilyService
	tasks    *service.TaskService
	reminder *service.ReminderService
	log      *zap.SugaredLogger
	now      func() time.Time
}

func New(token string, families *service.FamilyService, tasks *service.TaskService, reminder *service.ReminderService, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Infow("bot authorized", "account", api.Self.UserName)

	b := newBot(api, families, tasks, reminder, log)
	b.updates = api.GetUpdatesChan
	b.stop = api.StopReceivingUpdates
	return b, nil
}

func newBot(api sender, families *service.FamilyService, tasks *service.TaskService, reminder *service.ReminderService, log *zap.SugaredLogger) *Bot {
	return &Bot{
		api:      api,
		families: families,
		tasks:    tasks,
		reminder: reminder,
		log:      log,
		now:      time.Now,
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.updates == nil {
		return errors.New("bot has no update source")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.updates(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.stop()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Errorw("handle callback", "error", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Errorw("handle message", "error", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "Send /tasks to see your chores or /help for the command list.")
	}

	b.log.Debugw("command", "chatID", msg.Chat.ID, "command", msg.Command())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks":
		return b.handleTasks(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.families.MemberByTelegram(ctx, msg.Chat.ID)
	if errors.Is(err, model.ErrNotFound) {
		return b.sendText(msg.Chat.ID, fmt.Sprintf(
			"👋 Hi! This chat is not linked to a household account yet.\nAsk a family leader to link chat id <code>%d</code>.", msg.Chat.ID))
	}
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Welcome back, %s! Send /tasks to see your chores.", escape(user.Username)))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /tasks — your chores, tap a button to tick off a step\n" +
		"• /report — overdue and upcoming chores\n" +
		"• /start — show the chat id to link"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID)
	if !ok || err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID)
	if !ok || err != nil {
		return err
	}
	text, found, err := b.reminder.Digest(ctx, *user, user.LocalNow(b.now()))
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	if !found {
		text = "🎉 Nothing overdue or due soon."
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warnw("callback ack", "error", err)
	}
	if !strings.HasPrefix(cb.Data, cbDonePrefix) {
		return nil
	}
	subtaskID, err := strconv.ParseUint(strings.TrimPrefix(cb.Data, cbDonePrefix), 10, 64)
	if err != nil {
		return nil
	}

	chatID := cb.Message.Chat.ID
	user, ok, err := b.linkedUser(ctx, chatID)
	if !ok || err != nil {
		return err
	}
	actor := model.Actor{UserID: user.ID, Capabilities: model.CapabilitiesForRole(user.Role)}
	task, out, err := b.tasks.CompleteSubtask(ctx, actor, uint(subtaskID), user.LocalNow(b.now()))
	switch {
	case errors.Is(err, model.ErrNotFound):
		return b.sendText(chatID, "That step no longer exists.")
	case errors.Is(err, model.ErrForbidden):
		return b.sendText(chatID, "You are not allowed to complete that.")
	case err != nil:
		return err
	}

	var info string
	switch {
	case out.TaskCompleted:
		info = fmt.Sprintf("🎉 «%s» is done! Next due %s.", escape(task.Name), task.NextDue.Format("01/02/06"))
	case out.Changed:
		info = "✅ Step checked off."
	default:
		info = "That step was already done."
	}
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	actor := model.Actor{UserID: user.ID, Capabilities: model.CapabilitiesForRole(user.Role)}
	board, err := b.tasks.ListTasks(ctx, actor)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load tasks: %s", escape(err.Error())))
	}
	if len(board.Tasks) == 0 {
		return b.sendText(chatID, "You have no chores assigned. Enjoy!")
	}

	now := user.LocalNow(b.now())
	var builder strings.Builder
	builder.WriteString("📋 <b>Your chores</b>\n\n")
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range board.Tasks {
		builder.WriteString(service.FormatTask(task, now))
		for _, st := range task.Subtasks {
			if st.IsComplete {
				continue
			}
			label := fmt.Sprintf("✅ %s · %s", shortTitle(task.Name, 16), shortTitle(st.Name, 20))
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbDonePrefix, st.ID)),
			))
		}
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.api.Send(msg)
	return err
}

// Deliver tells every linked leader of the assignee's family about a completion.
func (b *Bot) Deliver(ctx context.Context, ev model.CompletionEvent) error {
	if ev.FamilyID == nil {
		return nil
	}
	leaders, err := b.families.Leaders(ctx, *ev.FamilyID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("✅ %s just completed <b>%s</b>!\nNext due %s.",
		escape(ev.AssigneeName), escape(ev.TaskName), ev.NextDue.Format("01/02/06"))

	var errs []error
	for _, leader := range leaders {
		if leader.TelegramID == nil {
			continue
		}
		if err := b.sendText(*leader.TelegramID, text); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", leader.Username, err))
		}
	}
	return errors.Join(errs...)
}

// SendDigests pushes the overdue digest to every linked user that has one.
func (b *Bot) SendDigests(ctx context.Context) error {
	users, err := b.families.Subscribers(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, found, err := b.reminder.Digest(ctx, user, user.LocalNow(now))
		if err != nil {
			b.log.Errorw("build digest", "userID", user.ID, "error", err)
			continue
		}
		if !found {
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			b.log.Errorw("send digest", "userID", user.ID, "error", err)
		}
	}
	return nil
}

// linkedUser resolves the chat to a user, telling the chat when it is not linked.
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*model.User, bool, error) {
	user, err := b.families.MemberByTelegram(ctx, chatID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, false, b.sendText(chatID, "This chat is not linked yet. Send /start for details.")
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func shortTitle(title string, maxLen int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
