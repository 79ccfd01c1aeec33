package constants

import "github.com/go-playground/validator/v10"

// Validate is the shared validator instance; it caches struct metadata, so it must not be copied per call.
var Validate = validator.New(validator.WithRequiredStructEnabled())
