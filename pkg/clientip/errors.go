package clientip

import "errors"

var ErrInvalidPrefix = errors.New("invalid ip prefix")
