package models

import "time"

// User представляет игрока на сервере прогресса
type User struct {
	CreatedAt    time.Time  `json:"created_at"`    // время создания
	LastLogin    *time.Time `json:"last_login"`    // время последнего входа
	ID           string     `json:"id"`            // UUID пользователя
	Username     string     `json:"username"`      // уникальный username
	PasswordHash string     `json:"password_hash"` // argon2id хеш пароля в формате salt$hash
}

// Ledger серверная запись прогресса игрока (авторитетная копия)
type Ledger struct {
	UpdatedAt      time.Time `json:"updated_at"`
	UserID         string    `json:"user_id"`
	Progress       string    `json:"progress"`
	GoldOther      int64     `json:"gold_other"`
	GoldComposed   int64     `json:"gold_composed"`
	RedBagOther    int64     `json:"red_bag_other"`
	RedBagComposed int64     `json:"red_bag_composed"`
	WealthCount    int64     `json:"wealth_count"`
	Exp            int64     `json:"exp"`
	Level          int64     `json:"level"`
	DrawCount      int64     `json:"draw_count"`
}

// NewLedger возвращает пустой ledger нового игрока
func NewLedger(userID string, now time.Time) Ledger {
	return Ledger{
		UserID:    userID,
		Level:     DefaultLevel,
		UpdatedAt: now,
	}
}

// Snapshot преобразует ledger в ServerSnapshot со всеми заполненными полями
func (l Ledger) Snapshot() ServerSnapshot {
	goldTotal := l.GoldOther + l.GoldComposed
	redBagTotal := l.RedBagOther + l.RedBagComposed
	goldComposed := l.GoldComposed
	redBagComposed := l.RedBagComposed
	wealth := l.WealthCount
	exp := l.Exp
	level := l.Level
	draw := l.DrawCount
	progress := l.Progress

	return ServerSnapshot{
		GoldTotal:      &goldTotal,
		GoldComposed:   &goldComposed,
		RedBagTotal:    &redBagTotal,
		RedBagComposed: &redBagComposed,
		WealthCount:    &wealth,
		Exp:            &exp,
		Level:          &level,
		DrawCount:      &draw,
		ProgressToken:  &progress,
	}
}
