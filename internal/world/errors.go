package world

import "errors"

var (
	// ErrOutOfRange - координата вне адресуемого мира
	ErrOutOfRange = errors.New("координата вне мира")
	// ErrBudgetTooSmall - бюджет памяти не вмещает даже один чанк
	ErrBudgetTooSmall = errors.New("бюджет памяти меньше одного чанка")
	// ErrUnknownBlock - незарегистрированный тип блока
	ErrUnknownBlock = errors.New("неизвестный тип блока")
	// ErrCorruptOverlay - повреждённые данные оверлея правок
	ErrCorruptOverlay = errors.New("повреждённые данные оверлея")
	// ErrNoTarget - луч не упёрся ни в один блок
	ErrNoTarget = errors.New("нет блока в пределах досягаемости")
)
