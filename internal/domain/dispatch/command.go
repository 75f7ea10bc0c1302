package dispatch

// Закрытый набор типизированных команд. Транспортный слой разбирает
// входящие сообщения и callback-данные в эти варианты; исчерпывающий
// type switch в Dispatch гарантирует, что каждая команда обработана.
type Command interface {
	isCommand()
}

// Hello — команда /start: регистрация или приветствие.
type Hello struct {
	UserID    int64
	Username  string
	FirstName string
}

// SetName — текст с именем в регистрационном диалоге.
type SetName struct {
	UserID int64
	Name   string
}

// Help — команда /help.
type Help struct {
	UserID int64
}

// Banks — команда /banks: список доступных банков вопросов.
type Banks struct {
	UserID int64
}

// BeginTest — запуск теста по банку. Пустой BankID означает, что банк ещё
// не выбран: в ответ придёт клавиатура выбора.
type BeginTest struct {
	UserID int64
	BankID string
}

// Answer — ответ на вопрос активной сессии.
type Answer struct {
	UserID   int64
	BankID   string
	Position int
	Option   int
}

// Abort — прерывание активной сессии. Пустой BankID допустим, когда у
// пользователя ровно одна активная сессия.
type Abort struct {
	UserID int64
	BankID string
}

// Score — личная история результатов.
type Score struct {
	UserID int64
}

// Leaderboard — табло по банку.
type Leaderboard struct {
	UserID int64
	BankID string
	Limit  int
}

// Pending — список заявок на подтверждение (админ).
type Pending struct {
	UserID int64
}

// Approve — подтверждение доступа (админ).
type Approve struct {
	UserID   int64
	TargetID int64
}

// Ban — отзыв доступа (админ).
type Ban struct {
	UserID   int64
	TargetID int64
}

func (Hello) isCommand()       {}
func (SetName) isCommand()     {}
func (Help) isCommand()        {}
func (Banks) isCommand()       {}
func (BeginTest) isCommand()   {}
func (Answer) isCommand()      {}
func (Abort) isCommand()       {}
func (Score) isCommand()       {}
func (Leaderboard) isCommand() {}
func (Pending) isCommand()     {}
func (Approve) isCommand()     {}
func (Ban) isCommand()         {}

// Button — кнопка инлайн-клавиатуры в транспортно-нейтральном виде.
type Button struct {
	Text string
	Data string
}

// Reply — ответ ядра транспортному слою: текст и, опционально, клавиатура.
// Ядро не выполняет никакого ввода-вывода к транспорту само.
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Префиксы callback-данных, общие для ядра и транспортного слоя.
const (
	CallbackBank        = "bank"
	CallbackAnswer      = "ans"
	CallbackLeaderboard = "lb"
	callbackSep         = "::"
)
