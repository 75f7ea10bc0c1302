package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"edutest-bot/internal/domain/bank"
	"edutest-bot/internal/domain/model"

	"github.com/google/uuid"
)

// AccessChecker проверяет, подтверждён ли доступ пользователя к тестам.
type AccessChecker interface {
	IsApproved(ctx context.Context, userID int64) (bool, error)
}

// ResultAppender — хранилище результатов, потребляемое движком.
// Append обязан быть долговечным до возврата; при ошибке завершение
// сессии удерживается и повторяется.
type ResultAppender interface {
	Append(ctx context.Context, r model.Result) (int64, error)
}

// ActiveMarker — межэкземплярная отметка активной сессии (например, в Redis).
// Позволяет соблюдать запрет на параллельные попытки, когда несколько
// реплик бота делят одну базу. Может отсутствовать (nil).
type ActiveMarker interface {
	Acquire(ctx context.Context, userID int64, bankID string) (bool, error)
	Release(ctx context.Context, userID int64, bankID string) error
}

type sessionKey struct {
	userID int64
	bankID string
}

// Engine владеет жизненным циклом всех сессий тестирования. Сессии хранятся
// в арене, ключом служит пара (пользователь, банк): так запрет на
// параллельные попытки и взаимное исключение мутаций проверяются механически.
type Engine struct {
	catalog func() *bank.Catalog
	access  AccessChecker
	results ResultAppender
	marker  ActiveMarker
	policy  model.SelectionPolicy
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[sessionKey]*session
}

// Option настраивает движок при создании.
type Option func(*Engine)

// WithClock подменяет источник времени (для детерминированных тестов).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMarker подключает межэкземплярную отметку активных сессий.
func WithMarker(m ActiveMarker) Option {
	return func(e *Engine) { e.marker = m }
}

// NewEngine создаёт движок сессий. catalog передаётся функцией, чтобы движок
// всегда видел актуальный каталог после перезагрузки банков.
func NewEngine(catalog func() *bank.Catalog, access AccessChecker, results ResultAppender, policy model.SelectionPolicy, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		access:   access,
		results:  results,
		policy:   policy,
		now:      time.Now,
		sessions: make(map[sessionKey]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// session — одна попытка пользователя пройти тест. Вся мутация проходит под
// mu: в каждый момент над сессией выполняется не более одной операции.
type session struct {
	id        string
	userID    int64
	bankID    string
	bank      *model.QuestionBank
	sequence  []int // индексы вопросов банка в порядке выдачи
	position  int
	answers   map[int]model.RecordedAnswer // ключ — позиция в sequence
	askedAt   []time.Time                  // момент показа вопроса по позиции
	startedAt time.Time
	state     model.SessionState

	mu sync.Mutex
}

// QuestionView — вопрос в том виде, в котором его видит студент:
// без правильного индекса.
type QuestionView struct {
	BankID    string
	BankName  string
	Position  int // 0-based
	Total     int
	Prompt    string
	Options   []string
	TimeLimit time.Duration // 0 — без ограничения
}

// SubmitOutcome — итог обработки одного ответа.
type SubmitOutcome struct {
	Correct       bool
	CorrectOption int
	Replaced      bool // ответ на уже отвеченный вопрос перезаписан, позиция не менялась
	Finished      bool
	Result        *model.Result
	Next          *QuestionView
}

// Start создаёт сессию для пары (пользователь, банк) и возвращает первый
// вопрос. Политика перекрытия — отказ: пока попытка активна, новая не
// начинается (ErrSessionAlreadyActive).
func (e *Engine) Start(ctx context.Context, userID int64, bankID string) (*QuestionView, error) {
	approved, err := e.access.IsApproved(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check approval: %w", err)
	}
	if !approved {
		return nil, model.ErrNotApproved
	}

	b, err := e.catalog().Get(bankID)
	if err != nil {
		return nil, err
	}

	key := sessionKey{userID: userID, bankID: bankID}

	e.mu.Lock()
	defer e.mu.Unlock()

	// В арене лежат только активные сессии: терминальный переход всегда
	// удаляет запись, поэтому само присутствие ключа означает активность.
	if _, ok := e.sessions[key]; ok {
		return nil, model.ErrSessionAlreadyActive
	}

	if e.marker != nil {
		ok, err := e.marker.Acquire(ctx, userID, bankID)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire session marker: %w", err)
		}
		if !ok {
			return nil, model.ErrSessionAlreadyActive
		}
	}

	now := e.now()
	s := &session{
		id:        uuid.NewString(),
		userID:    userID,
		bankID:    bankID,
		bank:      b,
		sequence:  e.selectSequence(b),
		answers:   make(map[int]model.RecordedAnswer),
		startedAt: now,
		state:     model.StateInProgress,
	}
	s.askedAt = make([]time.Time, len(s.sequence))
	s.askedAt[0] = now
	e.sessions[key] = s

	return s.viewLocked(e.policy.PerQuestionTimeLimit), nil
}

// selectSequence составляет последовательность вопросов по политике банка:
// весь банк в его порядке либо ограниченное случайное подмножество.
// Банк из одного вопроса даёт корректную последовательность длины 1.
func (e *Engine) selectSequence(b *model.QuestionBank) []int {
	n := len(b.Questions)
	if e.policy.Mode != model.SelectionRandomSubset {
		seq := make([]int, n)
		for i := range seq {
			seq[i] = i
		}
		return seq
	}

	k := e.policy.SubsetSize
	if k <= 0 || k > n {
		k = n
	}
	perm := rand.Perm(n)
	seq := make([]int, k)
	copy(seq, perm[:k])
	return seq
}

// Current возвращает текущий вопрос активной сессии.
func (e *Engine) Current(userID int64, bankID string) (*QuestionView, error) {
	s, ok := e.lookup(userID, bankID)
	if !ok {
		return nil, model.ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.StateInProgress {
		return nil, model.ErrNoActiveSession
	}
	return s.viewLocked(e.policy.PerQuestionTimeLimit), nil
}

// Submit фиксирует ответ на вопрос последовательности. position — позиция
// вопроса, на который отвечает пользователь (приходит из callback-данных):
// ответ на текущую позицию продвигает сессию, ответ на уже пройденную
// перезаписывает прежний выбор («последняя запись побеждает»), ответ на ещё
// не показанный вопрос отклоняется. Когда последовательность исчерпана,
// сессия завершается и результат записывается ровно один раз.
func (e *Engine) Submit(ctx context.Context, userID int64, bankID string, position, option int) (*SubmitOutcome, error) {
	s, ok := e.lookup(userID, bankID)
	if !ok {
		return nil, model.ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.StateInProgress:
	case model.StateCompletionPending:
		// Запись результата ранее не удалась — повторяем её вместо приёма ответа.
		res, err := e.finishLocked(ctx, s)
		if err != nil {
			return nil, err
		}
		return &SubmitOutcome{Finished: true, Result: res}, nil
	default:
		return nil, model.ErrNoActiveSession
	}

	if position < 0 || position > s.position || position >= len(s.sequence) {
		return nil, model.ErrInvalidOption
	}

	q := s.bank.Questions[s.sequence[position]]
	if option < 0 || option >= len(q.Options) {
		return nil, model.ErrInvalidOption
	}

	now := e.now()
	s.answers[position] = model.RecordedAnswer{Option: option, AnsweredAt: now}

	if position < s.position {
		// Пользователь передумал по уже пройденному вопросу: перезапись без
		// продвижения позиции. Дубль нажатия по текущему вопросу попадает
		// сюда же и не может продвинуть позицию дважды.
		return &SubmitOutcome{
			Correct:       e.scoredCorrect(s, position, q),
			CorrectOption: q.Correct,
			Replaced:      true,
			Next:          s.viewLocked(e.policy.PerQuestionTimeLimit),
		}, nil
	}

	// Ответ на текущий вопрос: позиция монотонно растёт и не превышает длину
	// последовательности.
	s.position++

	outcome := &SubmitOutcome{
		Correct:       e.scoredCorrect(s, position, q),
		CorrectOption: q.Correct,
	}

	if s.position < len(s.sequence) {
		s.askedAt[s.position] = now
		outcome.Next = s.viewLocked(e.policy.PerQuestionTimeLimit)
		return outcome, nil
	}

	res, err := e.finishLocked(ctx, s)
	if err != nil {
		return nil, err
	}
	outcome.Finished = true
	outcome.Result = res
	return outcome, nil
}

// scoredCorrect определяет, засчитывается ли ответ на позиции position.
// Ответ верен, если выбран правильный вариант и, при настроенном лимите
// времени на вопрос, ответ пришёл в срок. Вес влияет на величину балла,
// не на сам факт правильности.
func (e *Engine) scoredCorrect(s *session, position int, q model.Question) bool {
	a, ok := s.answers[position]
	if !ok || a.Option != q.Correct {
		return false
	}
	limit := e.policy.PerQuestionTimeLimit
	if limit > 0 && !s.askedAt[position].IsZero() && a.AnsweredAt.Sub(s.askedAt[position]) > limit {
		return false
	}
	return true
}

// finishLocked выполняет переход в Completed: подсчитывает балл и записывает
// результат. Вызывается с удержанным s.mu. Если запись не удалась, сессия
// остаётся в CompletionPending и переход повторяется при следующем вызове —
// результат не теряется и не задваивается.
func (e *Engine) finishLocked(ctx context.Context, s *session) (*model.Result, error) {
	now := e.now()

	score, correct := 0, 0
	total := 0
	details := make([]model.AnswerDetail, 0, len(s.sequence))
	for pos, qi := range s.sequence {
		q := s.bank.Questions[qi]
		total += q.PointWeight()

		chosen := -1
		if a, ok := s.answers[pos]; ok {
			chosen = a.Option
		}
		ok := e.scoredCorrect(s, pos, q)
		if ok {
			score += q.PointWeight()
			correct++
		}
		details = append(details, model.AnswerDetail{
			QuestionID: q.ID,
			Chosen:     chosen,
			Correct:    q.Correct,
			OK:         ok,
		})
	}

	res := model.Result{
		UserID:       s.userID,
		BankID:       s.bankID,
		Score:        score,
		CorrectCount: correct,
		Total:        total,
		Duration:     now.Sub(s.startedAt),
		CompletedAt:  now,
		Details:      details,
	}

	id, err := e.results.Append(ctx, res)
	if err != nil {
		s.state = model.StateCompletionPending
		return nil, fmt.Errorf("%w: %v", model.ErrPersistenceFailure, err)
	}
	res.ID = id
	s.state = model.StateCompleted

	e.release(ctx, s)
	return &res, nil
}

// Abort прерывает активную сессию. Прерванная попытка не оценивается и не
// попадает в хранилище результатов. Сессию, ожидающую записи результата,
// прервать нельзя — её завершение уже состоялось и должно быть сохранено.
func (e *Engine) Abort(ctx context.Context, userID int64, bankID string) error {
	s, ok := e.lookup(userID, bankID)
	if !ok {
		return model.ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.StateInProgress:
	case model.StateCompletionPending:
		return model.ErrPersistenceFailure
	default:
		return model.ErrNoActiveSession
	}

	s.state = model.StateAborted
	e.release(ctx, s)
	return nil
}

// RetryCompletion повторяет запись результата для сессии в CompletionPending.
func (e *Engine) RetryCompletion(ctx context.Context, userID int64, bankID string) (*model.Result, error) {
	s, ok := e.lookup(userID, bankID)
	if !ok {
		return nil, model.ErrNoActiveSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.StateCompletionPending {
		return nil, model.ErrNoActiveSession
	}
	return e.finishLocked(ctx, s)
}

// ActiveBanks возвращает банки, по которым у пользователя есть активная
// сессия, в детерминированном порядке.
func (e *Engine) ActiveBanks(userID int64) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []string
	for key := range e.sessions {
		if key.userID == userID {
			out = append(out, key.bankID)
		}
	}
	sort.Strings(out)
	return out
}

// lookup находит сессию пары (пользователь, банк).
func (e *Engine) lookup(userID int64, bankID string) (*session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[sessionKey{userID: userID, bankID: bankID}]
	return s, ok
}

// release убирает сессию из арены и снимает межэкземплярную отметку.
// Вызывается из терминальных переходов с удержанным s.mu.
func (e *Engine) release(ctx context.Context, s *session) {
	e.mu.Lock()
	delete(e.sessions, sessionKey{userID: s.userID, bankID: s.bankID})
	e.mu.Unlock()

	if e.marker != nil {
		_ = e.marker.Release(ctx, s.userID, s.bankID)
	}
}

// viewLocked строит представление текущего вопроса без правильного индекса.
// Вызывается с удержанным s.mu (или до публикации сессии).
func (s *session) viewLocked(limit time.Duration) *QuestionView {
	if s.position >= len(s.sequence) {
		return nil
	}
	q := s.bank.Questions[s.sequence[s.position]]
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	return &QuestionView{
		BankID:    s.bankID,
		BankName:  s.bank.Name,
		Position:  s.position,
		Total:     len(s.sequence),
		Prompt:    q.Prompt,
		Options:   options,
		TimeLimit: limit,
	}
}
