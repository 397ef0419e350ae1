package service

import "errors"

// 服务层的错误分类。调用方使用 errors.Is 判断类型，handler 据此映射状态码。
var (
	ErrQuotaCheckUnavailable  = errors.New("quota check unavailable")
	ErrQuotaExceeded          = errors.New("message quota exceeded")
	ErrRetrievalUnavailable   = errors.New("retrieval unavailable")
	ErrAnswerGenerationFailed = errors.New("answer generation failed")
	ErrPersistenceFailed      = errors.New("conversation persistence failed")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("invalid username or password")
)

// QuotaExceededError 携带展示给用户的提示文本。
type QuotaExceededError struct {
	Message string
}

func (e *QuotaExceededError) Error() string {
	return e.Message
}

// Is 让 errors.Is(err, ErrQuotaExceeded) 对该类型成立。
func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
