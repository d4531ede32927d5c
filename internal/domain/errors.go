package domain

import "errors"

var (
	ErrProductScopeRequired = errors.New("product scope is required")
	ErrNoLanguages          = errors.New("at least one target language is required")
	ErrOptionCountRange     = errors.New("num_options must be between 1 and 6")
	ErrInvalidLanguage      = errors.New("language tag is not valid")
	ErrModelsExhausted      = errors.New("all models in the preference order failed")
	ErrGenerationNotFound   = errors.New("no generation with that id")
)
