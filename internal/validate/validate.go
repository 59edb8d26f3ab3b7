package validate

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// FieldError is one failing field within a contract validation.
type FieldError struct {
	Path    string
	Message string
	Code    string
}

// ContractValidationError is returned by ValidateOrThrow; it carries one
// FieldError per failing field.
type ContractValidationError struct {
	Contract Contract
	Errors   []FieldError
}

func (e *ContractValidationError) Error() string {
	return fmt.Sprintf("validate: %s failed with %d error(s): %s", e.Contract, len(e.Errors), e.Errors[0].Message)
}

type unknownContract struct {
	contract Contract
}

func unknownContractError(c Contract) error {
	return &unknownContract{contract: c}
}

func (e *unknownContract) Error() string {
	return fmt.Sprintf("validate: unknown contract %q", e.contract)
}

// Result is the non-throwing validation outcome used by ValidateOrLog.
type Result struct {
	Success bool
	Errors  []FieldError
}

var (
	mu    sync.Mutex
	cache = map[Contract]*gojsonschema.Schema{}
)

func schemaFor(c Contract) (*gojsonschema.Schema, error) {
	mu.Lock()
	defer mu.Unlock()

	if s, ok := cache[c]; ok {
		return s, nil
	}
	schema, err := compile(c)
	if err != nil {
		return nil, err
	}
	cache[c] = schema
	return schema, nil
}

func run(c Contract, document any) (*gojsonschema.Result, error) {
	schema, err := schemaFor(c)
	if err != nil {
		return nil, err
	}
	return schema.Validate(gojsonschema.NewGoLoader(document))
}

func toFieldErrors(result *gojsonschema.Result) []FieldError {
	errs := make([]FieldError, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, FieldError{
			Path:    e.Field(),
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	return errs
}

// ValidateOrThrow validates document against contract's schema and
// returns a *ContractValidationError describing every failing field, or
// nil if the document is valid.
func ValidateOrThrow(c Contract, document any) error {
	result, err := run(c, document)
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	return &ContractValidationError{Contract: c, Errors: toFieldErrors(result)}
}

// ValidateOrLog validates document against contract's schema, logging a
// warning and returning a failed Result instead of an error.
func ValidateOrLog(c Contract, document any) Result {
	result, err := run(c, document)
	if err != nil {
		log.Warn().Err(err).Str("contract", string(c)).Msg("contract validation could not run")
		return Result{Success: false, Errors: []FieldError{{Message: err.Error(), Code: "schema_error"}}}
	}
	if result.Valid() {
		return Result{Success: true}
	}

	fieldErrors := toFieldErrors(result)
	log.Warn().Str("contract", string(c)).Int("errorCount", len(fieldErrors)).Msg("contract validation failed")
	return Result{Success: false, Errors: fieldErrors}
}
