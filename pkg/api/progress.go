package api

// CodeOK бизнес-код успешного ответа сервера
const CodeOK = 200

// Бизнес-коды ошибок, которые сервер возвращает с HTTP 200
const (
	CodeBadRequest = 400
	CodeInternal   = 500
)

// ProgressSnapshot представляет серверный снимок прогресса игрока.
// Все поля опциональны: nil означает, что сервер поле не прислал.
type ProgressSnapshot struct {
	GoldNum          *int64  `json:"goldNum,omitempty"`          // всего золота (compose + прочее)
	GoldNumCompose   *int64  `json:"goldNumCompose,omitempty"`   // золото, полученное за compose
	RedBagNum        *int64  `json:"redBagNum,omitempty"`        // всего красных конвертов
	RedBagNumCompose *int64  `json:"redBagNumCompose,omitempty"` // красные конверты за compose
	WealthNum        *int64  `json:"wealthNum,omitempty"`        // количество God of Wealth
	Exp              *int64  `json:"exp,omitempty"`              // опыт
	Level            *int64  `json:"level,omitempty"`            // уровень
	DrawNum          *int64  `json:"drawNum,omitempty"`          // оставшиеся розыгрыши
	Progress         *string `json:"progress,omitempty"`         // непрозрачный progress token
}

// QueryProgressResponse конверт ответа GET /game/queryGameProgress
type QueryProgressResponse struct {
	Data    *ProgressSnapshot `json:"data,omitempty"`
	Msg     string            `json:"msg,omitempty"`
	Code    int               `json:"code,omitempty"`
	Success bool              `json:"success"`
}

// SaveProgressRequest тело запроса POST /game/saveGameProgress.
// Содержит накопленный батч compose-событий и сериализованный локальный прогресс.
type SaveProgressRequest struct {
	RequestID    string   `json:"requestId"`                   // идемпотентный ID запроса
	DeviceID     string   `json:"deviceId"`                    // ID устройства
	PackageName  string   `json:"packageName,omitempty"`       // имя пакета клиента
	Progress     string   `json:"progress"`                    // JSON локального ProgressRecord
	ItemCodes    []string `json:"composeIllustrationCodeList"` // события батча в порядке записи
	Timestamp    int64    `json:"timeStamp"`                   // unix ms
	Times        int      `json:"times"`                       // количество событий в батче
	PremiumCount int      `json:"composeTgcfNum"`              // количество premium событий
}

// SaveProgressResponse конверт ответа POST /game/saveGameProgress
type SaveProgressResponse struct {
	Data *ProgressSnapshot `json:"data,omitempty"`
	Msg  string            `json:"msg,omitempty"`
	Code int               `json:"code"`
}

// Int64 возвращает указатель на v. Удобно для сборки ProgressSnapshot.
func Int64(v int64) *int64 {
	return &v
}

// String возвращает указатель на v.
func String(v string) *string {
	return &v
}
