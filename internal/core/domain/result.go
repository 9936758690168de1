package domain

// Result ответ use case'ов наружу. Ошибки никогда не пробрасываются
// дальше сервиса, вместо этого выставляется Success=false и Kind.
type Result[T any] struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Errors  []string  `json:"errors,omitempty"`
	Data    T         `json:"data"`
	Kind    ErrorKind `json:"-"`
}

func Ok[T any](data T, message string) Result[T] {
	return Result[T]{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func Fail[T any](kind ErrorKind, message string, errs ...string) Result[T] {
	return Result[T]{
		Success: false,
		Message: message,
		Errors:  errs,
		Kind:    kind,
	}
}
