package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/config"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/report"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/service"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageName
	stageDescription
	stageFrequency
	stageScheduleTime
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
	cbReportPrefix   = "report:"
	cbFreqPrefix     = "freq:"
	cbSchedDelPrefix = "schedel:"
	cbCancel         = "cancel"
)

const (
	menuLabelDashboard = "📊 Progress Dashboard"
	menuLabelComplete  = "✅ Mark Complete"
	menuLabelAddTask   = "📝 Add Task"
	menuLabelDelete    = "🗑️ Delete Task"
)

// session holds one user's in-flight add-task conversation.
type session struct {
	stage conversationStage
	input service.TaskInput
}

// sessions keeps per-user conversation state behind a lock.
type sessions struct {
	mu    sync.Mutex
	byUID map[int64]*session
}

func newSessions() *sessions {
	return &sessions{byUID: make(map[int64]*session)}
}

func (s *sessions) get(userID int64) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.byUID[userID]
	return st, ok
}

func (s *sessions) set(userID int64, st *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUID[userID] = st
}

func (s *sessions) clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUID, userID)
}

// pollContext ties a sent reminder poll to its task so the answer handler can
// record the completion.
type pollContext struct {
	userID   int64
	taskID   int64
	taskName string
	sentAt   time.Time
}

// Bot aggregates the Telegram API with the habit services.
type Bot struct {
	api      *tgbotapi.BotAPI
	taskSvc  *service.TaskService
	reports  *report.Service
	config   *config.Config
	sessions *sessions

	mu    sync.Mutex
	polls map[string]pollContext
}

func New(token string, taskSvc *service.TaskService, reports *report.Service, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:      api,
		taskSvc:  taskSvc,
		reports:  reports,
		config:   cfg,
		sessions: newSessions(),
		polls:    make(map[string]pollContext),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.PollAnswer != nil:
			if err := b.handlePollAnswer(ctx, update.PollAnswer); err != nil {
				log.Printf("handle poll answer: %v", err)
			}
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !b.allowedChat(update.Message.Chat.ID) {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

// allowedChat gates every interaction when ALLOWED_CHAT_ID is set.
func (b *Bot) allowedChat(chatID int64) bool {
	return b.config.AllowedChatID == 0 || chatID == b.config.AllowedChatID
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if handled, err := b.handleMenuAlias(ctx, msg); handled {
		return err
	}

	if _, ok := b.sessions.get(msg.From.ID); ok {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "🤔 I didn't understand that.\n\nUse the menu buttons below or type /help to see available commands!")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(msg)
	case "help":
		return b.handleHelp(msg)
	case "progress":
		return b.handleDashboard(ctx, msg)
	case "simple":
		return b.handleSimpleProgress(ctx, msg)
	case "report":
		return b.handleReportPick(ctx, msg)
	case "complete":
		return b.handleCompletePick(ctx, msg)
	case "add":
		return b.startAddConversation(msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "alltasks":
		return b.handleListAllTasks(ctx, msg)
	case "delete":
		return b.handleDeletePick(ctx, msg)
	case "schedules":
		return b.handleListSchedules(ctx, msg)
	case "addschedule":
		return b.handleAddSchedule(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "cancel":
		b.sessions.clear(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Current input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Check /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch msg.Text {
	case menuLabelDashboard:
		return true, b.handleDashboard(ctx, msg)
	case menuLabelComplete:
		return true, b.handleCompletePick(ctx, msg)
	case menuLabelAddTask:
		return true, b.startAddConversation(msg)
	case menuLabelDelete:
		return true, b.handleDeletePick(ctx, msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	b.sessions.clear(msg.From.ID)
	text := "🎯 <b>Welcome to your Habit Tracker!</b>\n\n" +
		"I'll help you track your daily habits and build consistent streaks!\n\n" +
		"<b>Available Commands:</b>\n" +
		"• 📊 <b>Dashboard</b> - View comprehensive progress\n" +
		"• ✅ <b>Mark Complete</b> - Mark today's task as done\n" +
		"• 📝 <b>Add Task</b> - Create new habit to track\n" +
		"• 🗑️ <b>Delete Task</b> - Remove existing task\n\n" +
		"Let's build some amazing habits together! 🚀"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "🤖 <b>Habit Tracker Bot</b>\n\n" +
		"<b>📊 Progress &amp; Analytics:</b>\n" +
		"/progress - Comprehensive dashboard with charts\n" +
		"/simple - Quick text progress summary\n" +
		"/report - Individual task HTML progress report\n\n" +
		"<b>✅ Task Management:</b>\n" +
		"/complete - Mark a task complete (manual anytime)\n" +
		"/add - Add a new habit with scheduling options\n" +
		"/tasks - List your active habits\n" +
		"/alltasks - Detailed list with schedules and streaks\n" +
		"/delete - Delete a habit\n" +
		"/stats - Completion totals per task\n" +
		"/cancel - Cancel the current input\n\n" +
		"<b>⏰ Scheduling:</b>\n" +
		"/schedules - List extra reminder times\n" +
		"/addschedule &lt;task id&gt; &lt;HH:MM&gt; [timezone] - Add a reminder time\n" +
		"Set a reminder time when creating a task and I'll send a poll at that " +
		"time every day the task isn't done yet. Vote Yes to auto-complete " +
		"and get a progress report."
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleDashboard(ctx context.Context, msg *tgbotapi.Message) error {
	page, err := b.reports.DashboardPage(ctx, msg.From.ID, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error generating dashboard: %s", escape(err.Error())))
	}
	return b.sendDocument(msg.Chat.ID, "habit_dashboard.html", page,
		"📊 Your Complete Habit Dashboard\n\nOpen this file in your browser to view your progress report!")
}

func (b *Bot) handleSimpleProgress(ctx context.Context, msg *tgbotapi.Message) error {
	text, err := b.reports.ProgressMessage(ctx, msg.From.ID, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReportPick(ctx context.Context, msg *tgbotapi.Message) error {
	return b.sendTaskPicker(ctx, msg, cbReportPrefix, "📊",
		"<b>Which task do you want a progress report for?</b>",
		"❌ You don't have any tasks yet. Use /add to create one!")
}

func (b *Bot) handleCompletePick(ctx context.Context, msg *tgbotapi.Message) error {
	return b.sendTaskPicker(ctx, msg, cbCompletePrefix, "✅",
		"📝 <b>Which task did you complete today?</b>",
		"❌ You don't have any tasks yet! Use /add to create your first habit.")
}

func (b *Bot) handleDeletePick(ctx context.Context, msg *tgbotapi.Message) error {
	return b.sendTaskPicker(ctx, msg, cbDeletePrefix, "🗑️",
		"🗑️ <b>Which task would you like to delete?</b>\n\n⚠️ <i>It will disappear from all listings and reminders.</i>",
		"❌ You don't have any tasks to delete!")
}

// sendTaskPicker lists the user's active tasks as inline buttons carrying the
// given callback prefix.
func (b *Bot) sendTaskPicker(ctx context.Context, msg *tgbotapi.Message, prefix, icon, prompt, emptyText string) error {
	tasks, err := b.taskSvc.ListTasks(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, emptyText)
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %s", icon, task.Name), fmt.Sprintf("%s%d", prefix, task.ID)),
		))
	}
	buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
	))

	reply := tgbotapi.NewMessage(msg.Chat.ID, prompt)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) startAddConversation(msg *tgbotapi.Message) error {
	log.Printf("[info] start add-task conversation user=%d", msg.From.ID)
	b.sessions.set(msg.From.ID, &session{stage: stageName})
	return b.sendText(msg.Chat.ID,
		"📝 <b>Let's create a new habit!</b>\n\nWhat would you like to call this task?\n\n"+
			"<i>Example: 'Daily Exercise', 'Read for 30 minutes', 'Drink 8 glasses of water'</i>")
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state, ok := b.sessions.get(msg.From.ID)
	if !ok {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageName:
		if text == "" {
			return b.sendText(msg.Chat.ID, "The task needs a name. Try again:")
		}
		state.input.Name = text
		state.stage = stageDescription
		return b.sendText(msg.Chat.ID, fmt.Sprintf(
			"✅ Great! Task name: <b>%s</b>\n\nNow, please provide a brief description of this habit:\n\n"+
				"<i>Example: 'Go for a 30-minute walk', 'Read at least 10 pages'</i>", escape(text)))
	case stageDescription:
		state.input.Description = text
		state.stage = stageFrequency
		reply := tgbotapi.NewMessage(msg.Chat.ID, "🔄 <b>How often do you want to do this habit?</b>")
		reply.ParseMode = tgbotapi.ModeHTML
		reply.ReplyMarkup = frequencyKeyboard()
		_, err := b.api.Send(reply)
		return err
	case stageScheduleTime:
		if strings.EqualFold(text, "skip") {
			state.input.ScheduleTime = ""
			return b.finishTaskCreation(ctx, msg.From.ID, msg.Chat.ID, state.input)
		}
		normalized, err := service.NormalizeTime(text)
		if err != nil {
			return b.sendText(msg.Chat.ID,
				"❌ <b>Invalid time format!</b>\n\nPlease use HH:MM format (24-hour).\n\n"+
					"<i>Examples: 07:30, 14:00, 22:15</i>\n\nOr type 'skip' to create without scheduled reminders:")
		}
		state.input.ScheduleTime = normalized
		return b.finishTaskCreation(ctx, msg.From.ID, msg.Chat.ID, state.input)
	default:
		// stageFrequency expects a button press, not text.
		return b.sendText(msg.Chat.ID, "Pick a frequency with the buttons above, or /cancel to start over.")
	}
}

func (b *Bot) finishTaskCreation(ctx context.Context, userID, chatID int64, input service.TaskInput) error {
	defer b.sessions.clear(userID)

	taskID, err := b.taskSvc.CreateTask(ctx, userID, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("❌ Error creating task: %s", escape(err.Error())))
	}

	log.Printf("[info] task created id=%d user=%d schedule=%q", taskID, userID, input.ScheduleTime)

	scheduleInfo := "📅 Manual tracking"
	if input.ScheduleTime != "" {
		scheduleInfo = fmt.Sprintf("⏰ Daily at %s", input.ScheduleTime)
	}
	frequency := input.Frequency
	if frequency == "" {
		frequency = model.FrequencyDaily
	}

	text := fmt.Sprintf(
		"✅ <b>Task Created Successfully!</b>\n\n"+
			"📝 <b>Name:</b> %s\n"+
			"📋 <b>Description:</b> %s\n"+
			"🔄 <b>Frequency:</b> %s\n"+
			"⏰ <b>Schedule:</b> %s\n\n"+
			"Your new habit is ready to track! Use the <b>✅ Mark Complete</b> button when you complete it.",
		escape(input.Name), escape(input.Description), escape(titleCase(frequency)), scheduleInfo)

	return b.sendText(chatID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	tasks, err := b.taskSvc.ListTasks(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "📝 You don't have any tasks yet!\n\nUse /add to create your first habit.")
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Your Habits:</b>\n\n")
	for i, task := range tasks {
		total, err := b.taskSvc.TotalFor(ctx, msg.From.ID, task.ID)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
		}
		scheduleInfo := "📅 Manual"
		if task.ScheduleTime != "" {
			scheduleInfo = "⏰ " + task.ScheduleTime
		}
		builder.WriteString(fmt.Sprintf("<b>%d. %s</b>\n", i+1, escape(task.Name)))
		if task.Description != "" {
			builder.WriteString(fmt.Sprintf("   📝 %s\n", escape(task.Description)))
		}
		builder.WriteString(fmt.Sprintf("   🔄 %s | %s\n", escape(titleCase(task.Frequency)), scheduleInfo))
		builder.WriteString(fmt.Sprintf("   📊 %d days completed\n\n", total))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleListAllTasks(ctx context.Context, msg *tgbotapi.Message) error {
	details, err := b.taskSvc.TaskDetails(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}
	if len(details) == 0 {
		return b.sendText(msg.Chat.ID, "📝 You don't have any tasks yet!\n\nUse /add to create your first habit.")
	}

	var builder strings.Builder
	builder.WriteString("🧾 <b>Your Tasks (Detailed)</b>\n\n")
	for i, d := range details {
		builder.WriteString(fmt.Sprintf("<b>%d. %s</b> (ID: %d)\n", i+1, escape(d.Task.Name), d.Task.ID))
		if d.Task.Description != "" {
			builder.WriteString(fmt.Sprintf("   📝 %s\n", escape(d.Task.Description)))
		}
		builder.WriteString(fmt.Sprintf("   🔄 Frequency: <b>%s</b>\n", escape(titleCase(d.Task.Frequency))))
		if d.Task.ScheduleTime != "" {
			builder.WriteString(fmt.Sprintf("   ⏰ Default time: <b>%s</b>\n", d.Task.ScheduleTime))
		}
		if len(d.Schedules) > 0 {
			entries := make([]string, 0, len(d.Schedules))
			for _, sched := range d.Schedules {
				entries = append(entries, fmt.Sprintf("%s %s", sched.Time, sched.Timezone))
			}
			builder.WriteString(fmt.Sprintf("   📅 Schedules: %s\n", escape(strings.Join(entries, ", "))))
		} else {
			builder.WriteString("   📅 Schedules: None\n")
		}
		builder.WriteString(fmt.Sprintf("   📊 Totals: <b>%d</b> days (This month: %d)\n", d.Total, d.ThisMonth))
		builder.WriteString(fmt.Sprintf("   🔥 Streaks: current <b>%d</b> | best <b>%d</b>\n", d.CurrentStreak, d.BestStreak))
		builder.WriteString(fmt.Sprintf("   🗓️ Created: %s\n", d.Task.CreatedAt.Format("2006-01-02")))
		lastDone := d.LastDone
		if lastDone == "" {
			lastDone = "—"
		}
		builder.WriteString(fmt.Sprintf("   ✅ Last done: %s\n\n", lastDone))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	stats, err := b.taskSvc.Stats(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}
	if len(stats) == 0 {
		return b.sendText(msg.Chat.ID, "📝 You don't have any tasks yet!\n\nUse /add to create your first habit.")
	}

	var builder strings.Builder
	builder.WriteString("📊 <b>Completion Totals</b>\n\n")
	for i, row := range stats {
		builder.WriteString(fmt.Sprintf("<b>%d. %s</b> — %d total (%d this month)\n",
			i+1, escape(row.Name), row.Total, row.ThisMonth))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleListSchedules(ctx context.Context, msg *tgbotapi.Message) error {
	schedules, err := b.taskSvc.ListSchedules(ctx, msg.From.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}
	if len(schedules) == 0 {
		return b.sendText(msg.Chat.ID,
			"⏰ No extra reminder times set.\n\nUse /addschedule &lt;task id&gt; &lt;HH:MM&gt; to add one "+
				"(task ids are shown by /alltasks).")
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	var builder strings.Builder
	builder.WriteString("⏰ <b>Extra Reminder Times</b>\n\n")
	for _, sched := range schedules {
		builder.WriteString(fmt.Sprintf("• <b>%s</b> at %s (%s)\n", escape(sched.TaskName), sched.Time, escape(sched.Timezone)))
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("🗑️ %s at %s", sched.TaskName, sched.Time),
				fmt.Sprintf("%s%d", cbSchedDelPrefix, sched.ID)),
		))
	}
	buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
	))

	reply := tgbotapi.NewMessage(msg.Chat.ID, builder.String())
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) handleAddSchedule(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		return b.sendText(msg.Chat.ID,
			"Usage: /addschedule &lt;task id&gt; &lt;HH:MM&gt; [timezone]\n\nTask ids are shown by /alltasks.")
	}
	taskID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ %q is not a task id.", escape(args[0])))
	}
	timezone := ""
	if len(args) > 2 {
		timezone = args[2]
	}

	schedID, err := b.taskSvc.CreateSchedule(ctx, msg.From.ID, taskID, args[1], timezone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return b.sendText(msg.Chat.ID, "❌ Task not found! Check the id with /alltasks.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
	}

	log.Printf("[info] schedule created id=%d user=%d task=%d", schedID, msg.From.ID, taskID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Reminder added! You'll get a poll at <b>%s</b> every day the task isn't done yet.\n\nSee all with /schedules.",
		escape(args[1])))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil || !b.allowedChat(cb.Message.Chat.ID) {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	data := cb.Data
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	userID := cb.From.ID

	switch {
	case data == cbCancel:
		b.sessions.clear(userID)
		return b.editText(chatID, messageID, "❌ Operation cancelled.")
	case strings.HasPrefix(data, cbCompletePrefix):
		taskID, err := parseTaskID(data, cbCompletePrefix)
		if err != nil {
			return nil
		}
		log.Printf("[info] callback complete user=%d task=%d", userID, taskID)
		return b.completeTask(ctx, chatID, messageID, userID, taskID)
	case strings.HasPrefix(data, cbDeletePrefix):
		taskID, err := parseTaskID(data, cbDeletePrefix)
		if err != nil {
			return nil
		}
		log.Printf("[info] callback delete user=%d task=%d", userID, taskID)
		return b.deleteTask(ctx, chatID, messageID, userID, taskID)
	case strings.HasPrefix(data, cbReportPrefix):
		taskID, err := parseTaskID(data, cbReportPrefix)
		if err != nil {
			return nil
		}
		return b.sendTaskReport(ctx, chatID, messageID, userID, taskID)
	case strings.HasPrefix(data, cbSchedDelPrefix):
		schedID, err := parseTaskID(data, cbSchedDelPrefix)
		if err != nil {
			return nil
		}
		deleted, err := b.taskSvc.DeleteSchedule(ctx, userID, schedID)
		if err != nil {
			return b.editText(chatID, messageID, fmt.Sprintf("❌ Error: %s", escape(err.Error())))
		}
		if !deleted {
			return b.editText(chatID, messageID, "❌ Schedule not found!")
		}
		log.Printf("[info] schedule deleted id=%d user=%d", schedID, userID)
		return b.editText(chatID, messageID, "✅ Reminder time removed.")
	case strings.HasPrefix(data, cbFreqPrefix):
		return b.applyFrequency(chatID, messageID, userID, strings.TrimPrefix(data, cbFreqPrefix))
	default:
		return nil
	}
}

func (b *Bot) applyFrequency(chatID int64, messageID int, userID int64, frequency string) error {
	state, ok := b.sessions.get(userID)
	if !ok || state.stage != stageFrequency {
		return b.editText(chatID, messageID, "❌ Session expired. Please start over with /add")
	}
	if !model.ValidFrequency(frequency) {
		return nil
	}
	state.input.Frequency = frequency
	state.stage = stageScheduleTime
	return b.editText(chatID, messageID, fmt.Sprintf(
		"✅ Frequency: <b>%s</b>\n\n⏰ <b>When would you like to be reminded?</b>\n\n"+
			"Please enter a time in HH:MM format (24-hour).\n\n"+
			"<i>Examples:</i>\n• 07:30 (7:30 AM)\n• 14:00 (2:00 PM)\n• 22:15 (10:15 PM)\n\n"+
			"Or type <b>'skip'</b> to create without scheduled reminders:", escape(titleCase(frequency))))
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, messageID int, userID, taskID int64) error {
	task, err := b.taskSvc.GetTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return b.editText(chatID, messageID, "❌ Task not found!")
		}
		return b.editText(chatID, messageID, fmt.Sprintf("❌ Error recording completion: %s", escape(err.Error())))
	}

	inserted, total, err := b.taskSvc.CompleteToday(ctx, userID, taskID)
	if err != nil {
		return b.editText(chatID, messageID, fmt.Sprintf("❌ Error recording completion: %s", escape(err.Error())))
	}

	if !inserted {
		return b.editText(chatID, messageID, fmt.Sprintf(
			"✅ <b>Already Done!</b>\n\n'%s' was already marked as complete for today!\n\n"+
				"📊 Total completions: <b>%d days</b>\n\nYou're on fire! 🔥", escape(task.Name), total))
	}

	if err := b.editText(chatID, messageID, fmt.Sprintf(
		"🎉 <b>Awesome!</b>\n\n✅ '%s' marked as complete for today!\n\n"+
			"📊 Total completions: <b>%d days</b>\n\nKeep up the great work! 💪", escape(task.Name), total)); err != nil {
		return err
	}

	log.Printf("[info] completion recorded user=%d task=%d total=%d", userID, taskID, total)
	return b.sendProgressDocument(ctx, chatID, userID, taskID, task.Name)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, messageID int, userID, taskID int64) error {
	task, err := b.taskSvc.GetTask(ctx, userID, taskID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return b.editText(chatID, messageID, fmt.Sprintf("❌ Error deleting task: %s", escape(err.Error())))
	}
	taskName := "Task"
	if task != nil {
		taskName = task.Name
	}

	deleted, err := b.taskSvc.DeleteTask(ctx, userID, taskID)
	if err != nil {
		return b.editText(chatID, messageID, fmt.Sprintf("❌ Error deleting task: %s", escape(err.Error())))
	}
	if !deleted {
		return b.editText(chatID, messageID, "❌ Task not found!")
	}

	log.Printf("[info] task deleted id=%d user=%d", taskID, userID)
	return b.editText(chatID, messageID, fmt.Sprintf(
		"✅ <b>Task Deleted</b>\n\n🗑️ '%s' has been removed.\n\n"+
			"It will no longer show up in listings, reports or reminders.", escape(taskName)))
}

func (b *Bot) sendTaskReport(ctx context.Context, chatID int64, messageID int, userID, taskID int64) error {
	task, err := b.taskSvc.GetTask(ctx, userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return b.editText(chatID, messageID, "❌ Task not found!")
		}
		return b.editText(chatID, messageID, fmt.Sprintf("❌ Error generating report: %s", escape(err.Error())))
	}

	if err := b.editText(chatID, messageID, fmt.Sprintf("📊 Generating report for '<b>%s</b>'...", escape(task.Name))); err != nil {
		return err
	}
	return b.sendProgressDocument(ctx, chatID, userID, taskID, task.Name)
}

func (b *Bot) sendProgressDocument(ctx context.Context, chatID, userID, taskID int64, taskName string) error {
	page, err := b.reports.ProgressPage(ctx, userID, time.Now(), taskID)
	if err != nil {
		log.Printf("generate progress page user=%d task=%d: %v", userID, taskID, err)
		return nil
	}
	name := strings.ReplaceAll(taskName, " ", "_") + "_progress.html"
	return b.sendDocument(chatID, name, page, fmt.Sprintf("📊 %s Progress Report", taskName))
}

// SendReminder sends the scheduled poll plus a fallback inline button. It is
// the notifier wired into the reminder scan.
func (b *Bot) SendReminder(ctx context.Context, task model.ScheduledTask) {
	if !b.allowedChat(task.UserID) {
		log.Printf("[info] reminder skipped, chat not allowed user=%d task=%d", task.UserID, task.TaskID)
		return
	}

	poll := tgbotapi.NewPoll(task.UserID,
		fmt.Sprintf("⏰ Reminder: Did you complete %q today?", task.Name),
		"✅ Yes, I completed it!", "❌ No, not yet")
	poll.IsAnonymous = false
	poll.AllowsMultipleAnswers = false

	sent, err := b.api.Send(poll)
	if err != nil {
		log.Printf("send reminder poll user=%d task=%d: %v", task.UserID, task.TaskID, err)
		return
	}
	if sent.Poll != nil {
		b.mu.Lock()
		b.polls[sent.Poll.ID] = pollContext{
			userID:   task.UserID,
			taskID:   task.TaskID,
			taskName: task.Name,
			sentAt:   time.Now(),
		}
		b.mu.Unlock()
	}

	fallback := tgbotapi.NewMessage(task.UserID, fmt.Sprintf(
		"⏰ <b>Scheduled Reminder</b>\n\n📝 Time to work on: <b>%s</b>\n\nVote in the poll above or use the button below!",
		escape(task.Name)))
	fallback.ParseMode = tgbotapi.ModeHTML
	fallback.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ Mark %s Complete", task.Name),
				fmt.Sprintf("%s%d", cbCompletePrefix, task.TaskID)),
		),
	)
	if _, err := b.api.Send(fallback); err != nil {
		log.Printf("send reminder message user=%d: %v", task.UserID, err)
	}
}

func (b *Bot) handlePollAnswer(ctx context.Context, answer *tgbotapi.PollAnswer) error {
	b.mu.Lock()
	pc, ok := b.polls[answer.PollID]
	if ok {
		delete(b.polls, answer.PollID)
	}
	b.mu.Unlock()

	if !ok || len(answer.OptionIDs) == 0 {
		return nil
	}
	if !b.allowedChat(pc.userID) {
		return nil
	}
	// Answers to yesterday's polls would record a completion for the wrong day.
	if time.Since(pc.sentAt) > 24*time.Hour {
		return nil
	}

	// Option 0 is Yes, option 1 is No.
	if answer.OptionIDs[0] != 0 {
		return b.sendText(pc.userID, fmt.Sprintf(
			"💪 No worries! Every journey has its challenges.\n\n'%s' can be completed later today.\n\n"+
				"Use the ✅ Mark Complete button when you're ready! 🌟", escape(pc.taskName)))
	}

	inserted, total, err := b.taskSvc.CompleteToday(ctx, pc.userID, pc.taskID)
	if err != nil {
		return fmt.Errorf("complete from poll: %w", err)
	}

	var text string
	if inserted {
		text = fmt.Sprintf(
			"🎉 <b>Excellent!</b>\n\n✅ '%s' marked as complete for today!\n\n"+
				"📊 Total completions: <b>%d days</b>\n\nYou're building a great habit! 💪", escape(pc.taskName), total)
	} else {
		text = fmt.Sprintf("✅ '%s' was already marked as complete for today!\n\nKeep up the great work! 🚀", escape(pc.taskName))
	}
	if err := b.sendText(pc.userID, text); err != nil {
		return err
	}
	return b.sendProgressDocument(ctx, pc.userID, pc.userID, pc.taskID, pc.taskName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editText(chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) sendDocument(chatID int64, name string, content []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: content})
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

func parseTaskID(data, prefix string) (int64, error) {
	return strconv.ParseInt(strings.TrimPrefix(data, prefix), 10, 64)
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelDashboard),
			tgbotapi.NewKeyboardButton(menuLabelComplete),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAddTask),
			tgbotapi.NewKeyboardButton(menuLabelDelete),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func frequencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Daily", cbFreqPrefix+model.FrequencyDaily),
			tgbotapi.NewInlineKeyboardButtonData("📅 Weekly", cbFreqPrefix+model.FrequencyWeekly),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Monthly", cbFreqPrefix+model.FrequencyMonthly),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel", cbCancel),
		),
	)
}

func escape(s string) string {
	return html.EscapeString(s)
}

func titleCase(value string) string {
	if value == "" {
		return value
	}
	return strings.ToUpper(value[:1]) + value[1:]
}
