package scanner

import "errors"

var (
	// ErrUnavailable — все попытки фетча исчерпаны, символ пропускается в этом проходе.
	ErrUnavailable = errors.New("market data unavailable")
	// ErrInsufficientHistory — свечей меньше прогрева, символ пропускается без ретраев.
	ErrInsufficientHistory = errors.New("insufficient candle history")

	ErrScanInProgress = errors.New("scan already in progress")
	ErrUnknownSymbol  = errors.New("unknown symbol")
	ErrNotWatched     = errors.New("symbol is not in watchlist")
	ErrAlreadyWatched = errors.New("symbol is already in watchlist")
	ErrUnknownProfile = errors.New("unknown profile")
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку источника как неретраибельную (404, неизвестный символ).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
