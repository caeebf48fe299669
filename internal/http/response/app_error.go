package response

// AppError 统一错误包装
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误，code 为空时按状态码取默认标识
func WrapError(status int, code, message string, err error) *AppError {
	if code == "" {
		code = DefaultErrorCode(status)
	}
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
