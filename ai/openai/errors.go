package openai

import "errors"

// ErrConfigRequired is returned when no configuration is provided.
var ErrConfigRequired = errors.New("ai config required")
