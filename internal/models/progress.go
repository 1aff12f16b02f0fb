package models

import "time"

// DefaultLevel стартовый уровень нового игрока
const DefaultLevel = 1

// ProgressRecord представляет локальный снимок прогресса игрока.
//
// Поля делятся по политике слияния:
//   - GoldComposed, RedBagComposed: заработаны на клиенте, не уменьшаются при merge;
//   - GoldOther, RedBagOther: только вычисляются из серверных итогов;
//   - WealthCount, Exp, Level, DrawCount, ProgressToken: перезаписываются сервером.
type ProgressRecord struct {
	CreatedAt        time.Time `json:"createdAt"`
	LastServerSyncAt time.Time `json:"lastServerSyncAt"`
	LastLocalSaveAt  time.Time `json:"lastLocalSaveAt"`
	ProgressToken    string    `json:"progressToken"`

	GoldComposed   int64 `json:"goldComposed"`
	RedBagComposed int64 `json:"redBagComposed"`
	GoldOther      int64 `json:"goldOther"`
	RedBagOther    int64 `json:"redBagOther"`

	WealthCount int64 `json:"wealthCount"`
	Exp         int64 `json:"exp"`
	Level       int64 `json:"level"`
	DrawCount   int64 `json:"drawCount"`

	// ComposeEventCount количество compose-событий за всё время жизни записи
	ComposeEventCount int64 `json:"composeEventCount"`

	// ServerGoldComposed и ServerRedBagComposed - последние подтверждённые сервером
	// значения compose-счётчиков. Разница с локальными значениями ещё не синхронизирована.
	ServerGoldComposed   int64 `json:"serverGoldComposed"`
	ServerRedBagComposed int64 `json:"serverRedBagComposed"`
}

// ServerSnapshot серверный снимок прогресса, вход для MergeServerSnapshot.
// nil-поле означает, что сервер его не прислал.
type ServerSnapshot struct {
	GoldTotal      *int64
	GoldComposed   *int64
	RedBagTotal    *int64
	RedBagComposed *int64
	WealthCount    *int64
	Exp            *int64
	Level          *int64
	DrawCount      *int64
	ProgressToken  *string
}

// InitializeDefault возвращает обнулённую запись с уровнем 1.
func InitializeDefault(now time.Time) ProgressRecord {
	return ProgressRecord{
		CreatedAt: now,
		Level:     DefaultLevel,
	}
}

// GoldTotal возвращает общее количество золота
func (p ProgressRecord) GoldTotal() int64 {
	return p.GoldComposed + p.GoldOther
}

// RedBagTotal возвращает общее количество красных конвертов
func (p ProgressRecord) RedBagTotal() int64 {
	return p.RedBagComposed + p.RedBagOther
}

// UnconfirmedGold возвращает золото, заработанное локально и ещё не подтверждённое сервером
func (p ProgressRecord) UnconfirmedGold() int64 {
	return nonNegative(p.GoldComposed - p.ServerGoldComposed)
}

// UnconfirmedRedBag возвращает красные конверты, ещё не подтверждённые сервером
func (p ProgressRecord) UnconfirmedRedBag() int64 {
	return nonNegative(p.RedBagComposed - p.ServerRedBagComposed)
}

// MergeServerSnapshot сливает серверный снимок в локальную запись.
// Функция чистая и тотальная: отсутствующие или некорректные поля сервера
// означают "без изменений".
//
// Compose-счётчики продвигаются до max(local, server), "прочие" счётчики
// пересчитываются как max(0, total - compose), остальные серверные поля
// перезаписываются целиком.
func MergeServerSnapshot(local ProgressRecord, server ServerSnapshot, now time.Time) ProgressRecord {
	merged := local

	if server.GoldComposed != nil {
		serverCompose := nonNegative(*server.GoldComposed)
		merged.GoldComposed = max(local.GoldComposed, serverCompose)
		merged.ServerGoldComposed = serverCompose
	}
	if server.GoldTotal != nil {
		merged.GoldOther = nonNegative(*server.GoldTotal - nonNegative(valueOrZero(server.GoldComposed)))
	}

	if server.RedBagComposed != nil {
		serverCompose := nonNegative(*server.RedBagComposed)
		merged.RedBagComposed = max(local.RedBagComposed, serverCompose)
		merged.ServerRedBagComposed = serverCompose
	}
	if server.RedBagTotal != nil {
		merged.RedBagOther = nonNegative(*server.RedBagTotal - nonNegative(valueOrZero(server.RedBagComposed)))
	}

	if server.WealthCount != nil {
		merged.WealthCount = nonNegative(*server.WealthCount)
	}
	if server.Exp != nil {
		merged.Exp = nonNegative(*server.Exp)
	}
	// уровень ниже стартового считаем мусором и игнорируем
	if server.Level != nil && *server.Level >= DefaultLevel {
		merged.Level = *server.Level
	}
	if server.DrawCount != nil {
		merged.DrawCount = nonNegative(*server.DrawCount)
	}
	if server.ProgressToken != nil {
		merged.ProgressToken = *server.ProgressToken
	}

	merged.LastServerSyncAt = now
	return merged
}

// ApplyComposeReward применяет награду за одно compose-событие.
// Отрицательные дельты игнорируются. Запись на диск не выполняется.
func ApplyComposeReward(local ProgressRecord, gold, redBag, wealth int64) ProgressRecord {
	updated := local
	updated.GoldComposed += nonNegative(gold)
	updated.RedBagComposed += nonNegative(redBag)
	updated.WealthCount += nonNegative(wealth)
	updated.ComposeEventCount++
	return updated
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
