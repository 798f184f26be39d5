package models

type PaymentPhase string

const (
	PhaseAdvance PaymentPhase = "advance"
	PhaseBalance PaymentPhase = "balance"
)

// Valid reports whether the phase is one of the known payment phases.
func (p PaymentPhase) Valid() bool {
	return p == PhaseAdvance || p == PhaseBalance
}

// PaymentStatus is the state of one payment session.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// IsTerminal reports whether the session can no longer change state.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSuccess || s == PaymentFailed
}

type Action string

const (
	ActionNone        Action = "none"
	ActionCancel      Action = "cancel"
	ActionPayBalance  Action = "pay_balance"
	ActionViewDetails Action = "view_details"
)

const (
	// AdvanceRate доля стоимости, оплачиваемая авансом
	AdvanceRate = 0.20

	// CurrencyINR валюта расчетов по умолчанию
	CurrencyINR = "INR"

	// DefaultTimezone часовой пояс для определения "сегодня"
	DefaultTimezone = "Asia/Kolkata"

	// CheckoutSlotTTL время удержания слота оплаты для одной брони
	CheckoutSlotTTL = 15 * 60 // 15 минут в секундах

	// CheckoutLoadTimeout ожидание загрузки скрипта оплаты
	CheckoutLoadTimeout = 15 // секунд

	// VenueCacheTTL время жизни кэша площадок
	VenueCacheTTL = 10 * 60 // 10 минут в секундах

	// DefaultRequestTimeout таймаут HTTP запросов к бэкенду
	DefaultRequestTimeout = 10 // секунд
)
