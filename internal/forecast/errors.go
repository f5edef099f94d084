package forecast

import "errors"

var (
	ErrCountryNotFound = errors.New("country not found")
	ErrDataUnavailable = errors.New("historical data unavailable")
	ErrModelFit        = errors.New("forecast model failed")
	ErrInvalidArgument = errors.New("invalid argument")
)
