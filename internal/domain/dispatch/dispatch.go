package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"edutest-bot/internal/domain/bank"
	"edutest-bot/internal/domain/engine"
	"edutest-bot/internal/domain/model"

	accesssvc "edutest-bot/internal/domain/access/service"
	resultsvc "edutest-bot/internal/domain/results/service"
)

// Notification — сообщение стороннему пользователю (не автору команды),
// например студенту после подтверждения доступа.
type Notification struct {
	UserID int64
	Text   string
}

// Dispatcher сводит команды к операциям ядра и формирует ответы.
// Ожидаемые отказы (нет доступа, нет сессии, неверный вариант) превращаются
// в текст для пользователя; непредвиденные ошибки возвращаются вызывающему.
type Dispatcher struct {
	engine  *engine.Engine
	access  *accesssvc.AccessService
	results *resultsvc.ResultService
	catalog func() *bank.Catalog

	leaderboardLimit int
}

// NewDispatcher создает новый экземпляр Dispatcher.
func NewDispatcher(eng *engine.Engine, access *accesssvc.AccessService, results *resultsvc.ResultService, catalog func() *bank.Catalog) *Dispatcher {
	return &Dispatcher{
		engine:           eng,
		access:           access,
		results:          results,
		catalog:          catalog,
		leaderboardLimit: 10,
	}
}

// Dispatch обрабатывает одну команду. Возвращённые уведомления транспортный
// слой доставляет адресатам отдельными сообщениями.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Reply, []Notification, error) {
	switch c := cmd.(type) {
	case Hello:
		r, err := d.hello(ctx, c)
		return r, nil, err
	case SetName:
		r, err := d.setName(ctx, c)
		return r, nil, err
	case Help:
		return d.help(c.UserID), nil, nil
	case Banks:
		return d.banks("Доступные банки вопросов:"), nil, nil
	case BeginTest:
		r, err := d.beginTest(ctx, c)
		return r, nil, err
	case Answer:
		r, err := d.answer(ctx, c)
		return r, nil, err
	case Abort:
		r, err := d.abort(ctx, c)
		return r, nil, err
	case Score:
		r, err := d.score(ctx, c)
		return r, nil, err
	case Leaderboard:
		r, err := d.leaderboard(ctx, c)
		return r, nil, err
	case Pending:
		r, err := d.pending(ctx, c)
		return r, nil, err
	case Approve:
		return d.approve(ctx, c)
	case Ban:
		return d.ban(ctx, c)
	default:
		return Reply{}, nil, fmt.Errorf("unknown command type %T", cmd)
	}
}

func (d *Dispatcher) hello(ctx context.Context, c Hello) (Reply, error) {
	entry, err := d.access.EnsureUser(ctx, c.UserID, c.Username, c.FirstName)
	if err != nil {
		return Reply{}, err
	}

	if entry.FullName == "" {
		return Reply{Text: "Здравствуйте! Это бот для прохождения тестов.\n\n" +
			"Для регистрации отправьте имя и фамилию одним сообщением."}, nil
	}

	approved, err := d.access.IsApproved(ctx, c.UserID)
	if err != nil {
		return Reply{}, err
	}
	if !approved {
		return Reply{Text: "Ваша заявка на регистрацию отправлена. " +
			"Дождитесь подтверждения администратора."}, nil
	}
	return Reply{Text: fmt.Sprintf("С возвращением, %s!\n\n%s", entry.FullName, d.helpText(c.UserID))}, nil
}

func (d *Dispatcher) setName(ctx context.Context, c SetName) (Reply, error) {
	entry, err := d.access.Get(ctx, c.UserID)
	if err != nil {
		return Reply{}, err
	}
	if entry == nil {
		return Reply{Text: "Сначала отправьте команду /start."}, nil
	}
	if entry.CurrentState != model.StateAwaitingName {
		return Reply{Text: "Не понимаю. Список команд: /help."}, nil
	}

	if err := d.access.SetFullName(ctx, c.UserID, c.Name); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return Reply{Text: "Сначала отправьте команду /start."}, nil
		}
		return Reply{Text: "Пожалуйста, отправьте имя и фамилию одним сообщением (минимум два слова)."}, nil
	}

	name := strings.TrimSpace(c.Name)
	if d.access.IsAdmin(c.UserID) {
		return Reply{Text: fmt.Sprintf("Спасибо, %s! Вы администратор, доступ открыт.\n\n%s",
			name, d.helpText(c.UserID))}, nil
	}
	return Reply{Text: fmt.Sprintf("Спасибо, %s! Заявка отправлена администратору, "+
		"после подтверждения вам станут доступны тесты.", name)}, nil
}

func (d *Dispatcher) help(userID int64) Reply {
	return Reply{Text: d.helpText(userID)}
}

func (d *Dispatcher) helpText(userID int64) string {
	var b strings.Builder
	b.WriteString("Доступные команды:\n")
	b.WriteString("/test — начать тест\n")
	b.WriteString("/banks — список банков вопросов\n")
	b.WriteString("/abort — прервать текущий тест\n")
	b.WriteString("/score — мои результаты\n")
	b.WriteString("/leaderboard — таблица лидеров")
	if d.access.IsAdmin(userID) {
		b.WriteString("\n\nКоманды администратора:\n")
		b.WriteString("/pending — заявки на доступ\n")
		b.WriteString("/approve <id> — подтвердить доступ\n")
		b.WriteString("/ban <id> — отозвать доступ")
	}
	return b.String()
}

// banks строит список банков с кнопками запуска теста.
func (d *Dispatcher) banks(header string) Reply {
	list := d.catalog().List()
	if len(list) == 0 {
		return Reply{Text: "Банки вопросов пока не загружены. Попробуйте позже."}
	}

	var b strings.Builder
	b.WriteString(header)
	buttons := make([][]Button, 0, len(list))
	for _, bk := range list {
		b.WriteString(fmt.Sprintf("\n• %s — вопросов: %d", bk.Name, len(bk.Questions)))
		buttons = append(buttons, []Button{{Text: bk.Name, Data: BankData(bk.ID)}})
	}
	return Reply{Text: b.String(), Buttons: buttons}
}

func (d *Dispatcher) beginTest(ctx context.Context, c BeginTest) (Reply, error) {
	if c.BankID == "" {
		return d.banks("Выберите банк вопросов:"), nil
	}

	view, err := d.engine.Start(ctx, c.UserID, c.BankID)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotApproved):
		return Reply{Text: "Доступ к тестам ещё не подтверждён администратором."}, nil
	case errors.Is(err, model.ErrBankNotFound):
		return Reply{Text: "Такой банк вопросов не найден. Список: /banks."}, nil
	case errors.Is(err, model.ErrSessionAlreadyActive):
		return Reply{Text: "По этому банку уже идёт тест. Завершите его или прервите командой /abort."}, nil
	default:
		return Reply{}, err
	}
	return d.renderQuestion(view), nil
}

func (d *Dispatcher) answer(ctx context.Context, c Answer) (Reply, error) {
	outcome, err := d.engine.Submit(ctx, c.UserID, c.BankID, c.Position, c.Option)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNoActiveSession):
		return Reply{Text: "Активного теста нет. Начать новый: /test."}, nil
	case errors.Is(err, model.ErrPersistenceFailure):
		return Reply{Text: "Не удалось сохранить результат. Нажмите любой вариант ещё раз, " +
			"чтобы повторить сохранение."}, nil
	case errors.Is(err, model.ErrInvalidOption):
		return Reply{Text: "Этот вопрос сейчас недоступен."}, nil
	default:
		return Reply{}, err
	}

	feedback := "❌ Неверно."
	if outcome.Correct {
		feedback = "✅ Верно!"
	}

	if outcome.Replaced {
		reply := d.renderQuestion(outcome.Next)
		reply.Text = feedback + " Ответ обновлён.\n\n" + reply.Text
		return reply, nil
	}
	if outcome.Finished {
		return Reply{Text: feedback + "\n\n" + renderResult(outcome.Result)}, nil
	}
	reply := d.renderQuestion(outcome.Next)
	reply.Text = feedback + "\n\n" + reply.Text
	return reply, nil
}

func (d *Dispatcher) abort(ctx context.Context, c Abort) (Reply, error) {
	bankID := c.BankID
	if bankID == "" {
		active := d.engine.ActiveBanks(c.UserID)
		switch len(active) {
		case 0:
			return Reply{Text: "Активного теста нет."}, nil
		case 1:
			bankID = active[0]
		default:
			return Reply{Text: "У вас несколько активных тестов, укажите банк: /abort <id>.\n" +
				"Активные: " + strings.Join(active, ", ")}, nil
		}
	}

	err := d.engine.Abort(ctx, c.UserID, bankID)
	switch {
	case err == nil:
		return Reply{Text: "Тест прерван. Результат не записан."}, nil
	case errors.Is(err, model.ErrNoActiveSession):
		return Reply{Text: "Активного теста нет."}, nil
	case errors.Is(err, model.ErrPersistenceFailure):
		return Reply{Text: "Тест уже завершён, идёт сохранение результата. Прервать его нельзя."}, nil
	default:
		return Reply{}, err
	}
}

func (d *Dispatcher) score(ctx context.Context, c Score) (Reply, error) {
	history, err := d.results.History(ctx, c.UserID, 10)
	if err != nil {
		return Reply{}, err
	}
	if len(history) == 0 {
		return Reply{Text: "Завершённых тестов пока нет. Начать: /test."}, nil
	}

	var b strings.Builder
	b.WriteString("Ваши последние результаты:")
	for _, r := range history {
		name := r.BankID
		if bk, err := d.catalog().Get(r.BankID); err == nil {
			name = bk.Name
		}
		b.WriteString(fmt.Sprintf("\n• %s: %d из %d (%s, %s)",
			name, r.Score, r.Total, formatDuration(r.Duration), r.CompletedAt.Format("02.01.2006")))
	}
	return Reply{Text: b.String()}, nil
}

func (d *Dispatcher) leaderboard(ctx context.Context, c Leaderboard) (Reply, error) {
	bankID := c.BankID
	if bankID == "" {
		list := d.catalog().List()
		switch len(list) {
		case 0:
			return Reply{Text: "Банки вопросов пока не загружены."}, nil
		case 1:
			bankID = list[0].ID
		default:
			buttons := make([][]Button, 0, len(list))
			for _, bk := range list {
				buttons = append(buttons, []Button{{Text: bk.Name, Data: LeaderboardData(bk.ID)}})
			}
			return Reply{Text: "По какому банку показать таблицу лидеров?", Buttons: buttons}, nil
		}
	}

	limit := c.Limit
	if limit <= 0 {
		limit = d.leaderboardLimit
	}
	entries, err := d.results.Rank(ctx, bankID, limit)
	if err != nil {
		return Reply{}, err
	}
	if len(entries) == 0 {
		return Reply{Text: "По этому банку ещё нет результатов."}, nil
	}

	name := bankID
	if bk, err := d.catalog().Get(bankID); err == nil {
		name = bk.Name
	}

	var b strings.Builder
	b.WriteString("🏆 Таблица лидеров — " + name + ":")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		place := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		display := e.DisplayName
		if display == "" {
			display = fmt.Sprintf("id%d", e.UserID)
		}
		b.WriteString(fmt.Sprintf("\n%s %s — %d (%s)", place, display, e.BestScore, formatDuration(e.BestDuration)))
	}
	return Reply{Text: b.String()}, nil
}

func (d *Dispatcher) pending(ctx context.Context, c Pending) (Reply, error) {
	entries, err := d.access.Pending(ctx, c.UserID)
	if errors.Is(err, model.ErrNotAdmin) {
		return Reply{Text: "Команда доступна только администраторам."}, nil
	}
	if err != nil {
		return Reply{}, err
	}
	if len(entries) == 0 {
		return Reply{Text: "Заявок на подтверждение нет."}, nil
	}

	var b strings.Builder
	b.WriteString("Заявки на подтверждение:")
	for _, e := range entries {
		line := fmt.Sprintf("\n• %s", e.FullName)
		if e.FullName == "" {
			line = "\n• (без имени)"
		}
		if e.Username != "" {
			line += " @" + e.Username
		}
		line += fmt.Sprintf(" — /approve %d", e.TelegramID)
		b.WriteString(line)
	}
	return Reply{Text: b.String()}, nil
}

func (d *Dispatcher) approve(ctx context.Context, c Approve) (Reply, []Notification, error) {
	err := d.access.Approve(ctx, c.UserID, c.TargetID)
	switch {
	case errors.Is(err, model.ErrNotAdmin):
		return Reply{Text: "Команда доступна только администраторам."}, nil, nil
	case errors.Is(err, model.ErrUserNotFound):
		return Reply{Text: "Пользователь не найден. Сначала он должен отправить боту /start."}, nil, nil
	case err != nil:
		return Reply{}, nil, err
	}
	note := Notification{
		UserID: c.TargetID,
		Text:   "Ваш доступ подтверждён! Начать тест: /test.",
	}
	return Reply{Text: fmt.Sprintf("Доступ пользователя %d подтверждён.", c.TargetID)}, []Notification{note}, nil
}

func (d *Dispatcher) ban(ctx context.Context, c Ban) (Reply, []Notification, error) {
	err := d.access.Ban(ctx, c.UserID, c.TargetID)
	switch {
	case errors.Is(err, model.ErrNotAdmin):
		return Reply{Text: "Команда доступна только администраторам."}, nil, nil
	case errors.Is(err, model.ErrUserNotFound):
		return Reply{Text: "Пользователь не найден."}, nil, nil
	case err != nil:
		return Reply{}, nil, err
	}
	note := Notification{
		UserID: c.TargetID,
		Text:   "Доступ к тестам отозван администратором.",
	}
	return Reply{Text: fmt.Sprintf("Доступ пользователя %d отозван.", c.TargetID)}, []Notification{note}, nil
}

// renderQuestion строит сообщение с вопросом и клавиатурой вариантов.
func (d *Dispatcher) renderQuestion(v *engine.QuestionView) Reply {
	if v == nil {
		return Reply{Text: "Активного вопроса нет."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📚 %s\n\nВопрос %d из %d\n\n%s", v.BankName, v.Position+1, v.Total, v.Prompt)
	if v.TimeLimit > 0 {
		fmt.Fprintf(&b, "\n\n⏱ На ответ: %s", formatDuration(v.TimeLimit))
		if v.Position == 0 {
			// Общий дедлайн теста складывается из лимитов по вопросам.
			fmt.Fprintf(&b, " (на весь тест: %s)", formatDuration(v.TimeLimit*time.Duration(v.Total)))
		}
	}

	buttons := make([][]Button, 0, len(v.Options))
	for i, opt := range v.Options {
		buttons = append(buttons, []Button{{
			Text: opt,
			Data: AnswerData(v.BankID, v.Position, i),
		}})
	}
	return Reply{Text: b.String(), Buttons: buttons}
}

// renderResult строит итоговое сообщение завершённого теста.
func renderResult(r *model.Result) string {
	return fmt.Sprintf("🏁 Тест завершён!\n\nПравильных ответов: %d из %d\nНабрано баллов: %d из %d\nВремя: %s\n\nТаблица лидеров: /leaderboard",
		r.CorrectCount, len(r.Details), r.Score, r.Total, formatDuration(r.Duration))
}

// formatDuration печатает длительность в виде «4 мин 35 сек».
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	if m == 0 {
		return fmt.Sprintf("%d сек", s)
	}
	return fmt.Sprintf("%d мин %d сек", m, s)
}

// BankData кодирует callback выбора банка.
func BankData(bankID string) string {
	return CallbackBank + callbackSep + bankID
}

// AnswerData кодирует callback ответа на вопрос.
func AnswerData(bankID string, position, option int) string {
	return strings.Join([]string{
		CallbackAnswer, bankID, strconv.Itoa(position), strconv.Itoa(option),
	}, callbackSep)
}

// LeaderboardData кодирует callback выбора банка для табло.
func LeaderboardData(bankID string) string {
	return CallbackLeaderboard + callbackSep + bankID
}

// ParseCallback разбирает callback-данные в команду. Неизвестные или
// повреждённые данные дают ошибку; транспортный слой молча их игнорирует.
func ParseCallback(userID int64, data string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(data), callbackSep)
	switch {
	case len(parts) == 2 && parts[0] == CallbackBank:
		return BeginTest{UserID: userID, BankID: parts[1]}, nil
	case len(parts) == 2 && parts[0] == CallbackLeaderboard:
		return Leaderboard{UserID: userID, BankID: parts[1]}, nil
	case len(parts) == 4 && parts[0] == CallbackAnswer:
		position, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("bad answer position %q: %w", parts[2], err)
		}
		option, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("bad answer option %q: %w", parts[3], err)
		}
		return Answer{UserID: userID, BankID: parts[1], Position: position, Option: option}, nil
	default:
		return nil, fmt.Errorf("unknown callback data %q", data)
	}
}
