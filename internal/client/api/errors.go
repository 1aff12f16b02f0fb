package api

import (
	"fmt"
)

// ErrorKind классифицирует ошибку синхронизации
type ErrorKind int

const (
	KindAuthMissing  ErrorKind = iota + 1 // нет токена, запрос не отправлялся
	KindNetwork                           // транспортная ошибка
	KindTimeout                           // истёк таймаут запроса
	KindHTTP                              // не-2xx статус кроме 401/403
	KindUnauthorized                      // 401
	KindForbidden                         // 403
	KindParse                             // тело ответа не разобрано
	KindBusiness                          // сервер вернул бизнес-ошибку в конверте
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthMissing:
		return "auth_missing"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindParse:
		return "parse"
	case KindBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// SyncError ошибка обращения к серверу прогресса.
// errors.Is сравнивает только Kind, поэтому sentinel-значения ниже
// подходят для проверки категории, а errors.As отдаёт детали.
type SyncError struct {
	Err        error     // исходная ошибка транспорта или декодера
	Message    string    // сообщение сервера
	Kind       ErrorKind // категория
	StatusCode int       // HTTP статус, если ответ был получен
	Code       int       // бизнес-код из конверта
}

// Sentinel errors для errors.Is
var (
	ErrAuthMissing  = &SyncError{Kind: KindAuthMissing}
	ErrNetwork      = &SyncError{Kind: KindNetwork}
	ErrTimeout      = &SyncError{Kind: KindTimeout}
	ErrHTTP         = &SyncError{Kind: KindHTTP}
	ErrUnauthorized = &SyncError{Kind: KindUnauthorized}
	ErrForbidden    = &SyncError{Kind: KindForbidden}
	ErrParse        = &SyncError{Kind: KindParse}
	ErrBusiness     = &SyncError{Kind: KindBusiness}
)

func (e *SyncError) Error() string {
	switch e.Kind {
	case KindAuthMissing:
		return "sync: access token is missing"
	case KindNetwork:
		return fmt.Sprintf("sync: network error: %v", e.Err)
	case KindTimeout:
		return fmt.Sprintf("sync: request timed out: %v", e.Err)
	case KindHTTP, KindUnauthorized, KindForbidden:
		if e.Message != "" {
			return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
		}
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	case KindParse:
		return fmt.Sprintf("sync: failed to decode response: %v", e.Err)
	case KindBusiness:
		return fmt.Sprintf("sync: business error (code %d): %s", e.Code, e.Message)
	default:
		return "sync: unknown error"
	}
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is реализует сравнение по категории для errors.Is
func (e *SyncError) Is(target error) bool {
	t, ok := target.(*SyncError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
