package model

import "errors"

// Ошибки доменного уровня. Ошибки авторизации и валидации показываются
// пользователю как есть и не повторяются системой; ErrPersistenceFailure —
// единственная повторяемая ошибка (см. ErrPersistenceFailure в engine).
var (
	// ErrBankNotFound — запрошенный банк вопросов не загружен.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrBankMalformed — определение банка не прошло валидацию; банк целиком недоступен.
	ErrBankMalformed = errors.New("question bank malformed")
	// ErrNotApproved — пользователь ещё не подтверждён администратором.
	ErrNotApproved = errors.New("user not approved")
	// ErrNotAdmin — действие требует роли администратора.
	ErrNotAdmin = errors.New("user is not an admin")
	// ErrSessionAlreadyActive — у пары (пользователь, банк) уже есть активная сессия.
	ErrSessionAlreadyActive = errors.New("session already active")
	// ErrNoActiveSession — ответ или отмена без активной сессии.
	ErrNoActiveSession = errors.New("no active session")
	// ErrInvalidOption — индекс варианта вне диапазона или ответ на неактуальный вопрос.
	ErrInvalidOption = errors.New("invalid answer option")
	// ErrPersistenceFailure — хранилище результатов недоступно; завершение удерживается
	// в состоянии CompletionPending до успешного повтора.
	ErrPersistenceFailure = errors.New("result persistence failure")
	// ErrUserNotFound — пользователь не зарегистрирован в боте.
	ErrUserNotFound = errors.New("user not found")
)
