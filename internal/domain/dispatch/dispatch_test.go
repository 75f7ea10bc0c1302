package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"edutest-bot/internal/domain/bank"
	"edutest-bot/internal/domain/engine"
	"edutest-bot/internal/domain/model"

	accesssvc "edutest-bot/internal/domain/access/service"
	resultsvc "edutest-bot/internal/domain/results/service"
)

// fakeUsers — in-memory хранилище доступа.
type fakeUsers struct {
	users map[int64]*model.AccessEntry
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*model.AccessEntry)}
}

func (f *fakeUsers) GetByTelegramID(_ context.Context, id int64) (*model.AccessEntry, error) {
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, id int64, username, fullName, state string) (*model.AccessEntry, error) {
	entry := &model.AccessEntry{TelegramID: id, Username: username, FullName: fullName, CurrentState: state}
	f.users[id] = entry
	cp := *entry
	return &cp, nil
}

func (f *fakeUsers) SetFullName(_ context.Context, id int64, fullName string) error {
	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.FullName = fullName
	u.CurrentState = ""
	return nil
}

func (f *fakeUsers) SetApproved(_ context.Context, id int64, approved bool) error {
	u, ok := f.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	u.Approved = approved
	return nil
}

func (f *fakeUsers) SetState(_ context.Context, id int64, state string) error {
	if u, ok := f.users[id]; ok {
		u.CurrentState = state
	}
	return nil
}

func (f *fakeUsers) ListPending(_ context.Context) ([]model.AccessEntry, error) {
	var out []model.AccessEntry
	for _, u := range f.users {
		if !u.Approved {
			out = append(out, *u)
		}
	}
	return out, nil
}

// fakeResults — журнал результатов в памяти, служит и Append-хранилищем
// движка, и источником чтения для табло.
type fakeResults struct {
	results []model.Result
}

func (f *fakeResults) Append(_ context.Context, r model.Result) (int64, error) {
	r.ID = int64(len(f.results) + 1)
	f.results = append(f.results, r)
	return r.ID, nil
}

func (f *fakeResults) QueryByBank(_ context.Context, bankID string) ([]model.Result, error) {
	var out []model.Result
	for _, r := range f.results {
		if r.BankID == bankID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResults) QueryByUser(_ context.Context, userID int64, limit int) ([]model.Result, error) {
	var out []model.Result
	for _, r := range f.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testBank() *model.QuestionBank {
	return &model.QuestionBank{
		ID:   "B1",
		Name: "Алгебра",
		Questions: []model.Question{
			{ID: "q1", Prompt: "2+2?", Options: []string{"3", "4"}, Correct: 1},
			{ID: "q2", Prompt: "3*3?", Options: []string{"9", "6"}, Correct: 0},
		},
	}
}

func newTestDispatcher(adminIDs []int64) (*Dispatcher, *fakeUsers, *fakeResults) {
	users := newFakeUsers()
	results := &fakeResults{}
	catalog := bank.NewStaticCatalog(testBank())
	catalogFn := func() *bank.Catalog { return catalog }

	access := accesssvc.NewAccessService(users, adminIDs)
	eng := engine.NewEngine(catalogFn, access, results, model.SelectionPolicy{})
	res := resultsvc.NewResultService(results)
	return NewDispatcher(eng, access, res, catalogFn), users, results
}

// TestRegistrationDialog: /start предлагает прислать имя, имя из одного
// слова отклоняется, корректное принимается.
func TestRegistrationDialog(t *testing.T) {
	d, _, _ := newTestDispatcher(nil)
	ctx := context.Background()

	reply, _, err := d.Dispatch(ctx, Hello{UserID: 100, Username: "student"})
	if err != nil {
		t.Fatalf("Hello вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "имя и фамилию") {
		t.Errorf("новому пользователю должен прийти запрос имени: %q", reply.Text)
	}

	reply, _, err = d.Dispatch(ctx, SetName{UserID: 100, Name: "Олена"})
	if err != nil {
		t.Fatalf("SetName вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "два слова") {
		t.Errorf("имя из одного слова должно отклоняться: %q", reply.Text)
	}

	reply, _, err = d.Dispatch(ctx, SetName{UserID: 100, Name: "Олена Петренко"})
	if err != nil {
		t.Fatalf("SetName вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "Олена Петренко") {
		t.Errorf("после регистрации пользователь должен видеть своё имя: %q", reply.Text)
	}
}

// TestBeginTest_NotApproved: неподтверждённый пользователь получает отказ
// текстом, а не ошибкой.
func TestBeginTest_NotApproved(t *testing.T) {
	d, _, _ := newTestDispatcher(nil)
	ctx := context.Background()

	if _, _, err := d.Dispatch(ctx, Hello{UserID: 100}); err != nil {
		t.Fatalf("Hello вернул ошибку: %v", err)
	}
	reply, _, err := d.Dispatch(ctx, BeginTest{UserID: 100, BankID: "B1"})
	if err != nil {
		t.Fatalf("BeginTest вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "не подтверждён") {
		t.Errorf("ожидался отказ из-за неподтверждённого доступа: %q", reply.Text)
	}
}

// TestFullFlow: полный проход теста через команды: запуск, ответы через
// callback-данные с кнопок, итоговое сообщение и табло.
func TestFullFlow(t *testing.T) {
	d, users, results := newTestDispatcher([]int64{1})
	ctx := context.Background()

	users.users[100] = &model.AccessEntry{TelegramID: 100, FullName: "Олена Петренко", Approved: true}

	reply, _, err := d.Dispatch(ctx, BeginTest{UserID: 100, BankID: "B1"})
	if err != nil {
		t.Fatalf("BeginTest вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "Вопрос 1 из 2") {
		t.Fatalf("ожидался первый вопрос: %q", reply.Text)
	}
	if len(reply.Buttons) != 2 {
		t.Fatalf("ожидались 2 кнопки вариантов, получено %d", len(reply.Buttons))
	}

	// Отвечаем нажатием кнопки: данные кнопки разбираются в команду Answer.
	cmd, err := ParseCallback(100, reply.Buttons[1][0].Data)
	if err != nil {
		t.Fatalf("ParseCallback вернул ошибку: %v", err)
	}
	reply, _, err = d.Dispatch(ctx, cmd)
	if err != nil {
		t.Fatalf("Answer вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "✅") || !strings.Contains(reply.Text, "Вопрос 2 из 2") {
		t.Fatalf("ожидался верный ответ и второй вопрос: %q", reply.Text)
	}

	cmd, err = ParseCallback(100, reply.Buttons[1][0].Data)
	if err != nil {
		t.Fatalf("ParseCallback вернул ошибку: %v", err)
	}
	reply, _, err = d.Dispatch(ctx, cmd)
	if err != nil {
		t.Fatalf("Answer вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "Тест завершён") {
		t.Fatalf("ожидалось итоговое сообщение: %q", reply.Text)
	}
	if len(results.results) != 1 {
		t.Fatalf("ожидалась одна запись результата, получено %d", len(results.results))
	}

	reply, _, err = d.Dispatch(ctx, Leaderboard{UserID: 100, BankID: "B1"})
	if err != nil {
		t.Fatalf("Leaderboard вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "Олена Петренко") {
		t.Errorf("табло должно содержать имя участника: %q", reply.Text)
	}
}

// TestAbort_SingleActiveSession: /abort без банка прерывает единственную
// активную сессию.
func TestAbort_SingleActiveSession(t *testing.T) {
	d, users, results := newTestDispatcher(nil)
	ctx := context.Background()

	users.users[100] = &model.AccessEntry{TelegramID: 100, FullName: "Олена", Approved: true}
	if _, _, err := d.Dispatch(ctx, BeginTest{UserID: 100, BankID: "B1"}); err != nil {
		t.Fatalf("BeginTest вернул ошибку: %v", err)
	}

	reply, _, err := d.Dispatch(ctx, Abort{UserID: 100})
	if err != nil {
		t.Fatalf("Abort вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "прерван") {
		t.Errorf("ожидалось подтверждение прерывания: %q", reply.Text)
	}
	if len(results.results) != 0 {
		t.Errorf("прерванная попытка не должна записывать результат")
	}

	reply, _, _ = d.Dispatch(ctx, Abort{UserID: 100})
	if !strings.Contains(reply.Text, "Активного теста нет") {
		t.Errorf("повторный /abort должен сообщать об отсутствии теста: %q", reply.Text)
	}
}

// TestAdminCommands: /pending закрыт для студентов; /approve шлёт
// уведомление подтверждённому пользователю.
func TestAdminCommands(t *testing.T) {
	d, _, _ := newTestDispatcher([]int64{1})
	ctx := context.Background()

	if _, _, err := d.Dispatch(ctx, Hello{UserID: 100, Username: "student"}); err != nil {
		t.Fatalf("Hello вернул ошибку: %v", err)
	}
	if _, _, err := d.Dispatch(ctx, SetName{UserID: 100, Name: "Олена Петренко"}); err != nil {
		t.Fatalf("SetName вернул ошибку: %v", err)
	}

	reply, _, err := d.Dispatch(ctx, Pending{UserID: 100})
	if err != nil {
		t.Fatalf("Pending вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "только администраторам") {
		t.Errorf("студенту /pending недоступен: %q", reply.Text)
	}

	reply, _, err = d.Dispatch(ctx, Pending{UserID: 1})
	if err != nil {
		t.Fatalf("Pending вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "Олена Петренко") {
		t.Errorf("заявка должна быть в списке: %q", reply.Text)
	}

	reply, notes, err := d.Dispatch(ctx, Approve{UserID: 1, TargetID: 100})
	if err != nil {
		t.Fatalf("Approve вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "подтверждён") {
		t.Errorf("администратор должен увидеть подтверждение: %q", reply.Text)
	}
	if len(notes) != 1 || notes[0].UserID != 100 {
		t.Fatalf("студент должен получить уведомление: %+v", notes)
	}

	// После подтверждения тест запускается.
	reply, _, err = d.Dispatch(ctx, BeginTest{UserID: 100, BankID: "B1"})
	if err != nil {
		t.Fatalf("BeginTest вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "Вопрос 1") {
		t.Errorf("подтверждённый пользователь должен начать тест: %q", reply.Text)
	}
}

// TestParseCallback_BadData: повреждённые callback-данные дают ошибку.
func TestParseCallback_BadData(t *testing.T) {
	cases := []string{"", "ans::B1::x::0", "ans::B1::0", "zzz::B1", "ans::B1::0::y"}
	for _, data := range cases {
		if _, err := ParseCallback(1, data); err == nil {
			t.Errorf("данные %q должны отклоняться", data)
		}
	}

	cmd, err := ParseCallback(7, AnswerData("B1", 2, 1))
	if err != nil {
		t.Fatalf("корректные данные должны разбираться: %v", err)
	}
	a, ok := cmd.(Answer)
	if !ok || a.UserID != 7 || a.BankID != "B1" || a.Position != 2 || a.Option != 1 {
		t.Errorf("неверный разбор: %+v", cmd)
	}
}

// TestQuestionTimeLimitShown: при лимите времени на вопрос он отображается
// в сообщении.
func TestQuestionTimeLimitShown(t *testing.T) {
	users := newFakeUsers()
	results := &fakeResults{}
	catalog := bank.NewStaticCatalog(testBank())
	catalogFn := func() *bank.Catalog { return catalog }
	access := accesssvc.NewAccessService(users, nil)
	eng := engine.NewEngine(catalogFn, access, results,
		model.SelectionPolicy{PerQuestionTimeLimit: 30 * time.Second})
	d := NewDispatcher(eng, access, resultsvc.NewResultService(results), catalogFn)

	users.users[100] = &model.AccessEntry{TelegramID: 100, FullName: "Олена", Approved: true}
	reply, _, err := d.Dispatch(context.Background(), BeginTest{UserID: 100, BankID: "B1"})
	if err != nil {
		t.Fatalf("BeginTest вернул ошибку: %v", err)
	}
	if !strings.Contains(reply.Text, "30 сек") {
		t.Errorf("лимит времени должен быть в тексте вопроса: %q", reply.Text)
	}
}
