package core

// Result holds the outcome of one query: either a value or an error, never both.
type Result[T any] struct {
	value T
	err   error
}

// BalanceResult is the outcome of a balance query.
type BalanceResult = Result[float64]

// SymbolsResult is the outcome of a symbol catalog query.
type SymbolsResult = Result[[]string]

// KlinesResult is the outcome of a candle query.
type KlinesResult = Result[[]KlineCandle]

// Ok returns a successful result.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Fail returns a failed result. A nil err is replaced by an unknown error.
func Fail[T any](err error) Result[T] {
	if err == nil {
		err = NewError(ErrorTypeUnknown, "unknown error")
	}
	return Result[T]{err: err}
}

// ResultOf converts a (value, error) pair into a Result.
func ResultOf[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(v)
}

// IsOK reports whether the query succeeded.
func (r Result[T]) IsOK() bool {
	return r.err == nil
}

// Value returns the value, or the zero value on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Err returns the failure, or nil on success.
func (r Result[T]) Err() error {
	return r.err
}

// Get returns the value and the error as a pair.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// Message returns the failure text, or "" on success.
func (r Result[T]) Message() string {
	return Message(r.err)
}

// Type returns the failure category, or ErrorTypeUnknown on success.
func (r Result[T]) Type() ErrorType {
	return TypeOf(r.err)
}
