package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wichananm65/users-api/internal/usecase"
)

// ValidationErrorDetail is one entry of a 422 response's "detail" list.
type ValidationErrorDetail struct {
	Type  string `json:"type"`
	Loc   []any  `json:"loc"`
	Msg   string `json:"msg"`
	Input any    `json:"input"`
}

const (
	msgFieldRequired  = "Field required"
	msgStringType     = "Input should be a valid string"
	msgStringTooShort = "String should have at least 1 character"
	msgStringTooLong  = "String should have at most 250 characters"
	msgIntFromFloat   = "Input should be a valid integer, got a number with a fractional part"
	msgIntParsing     = "Input should be a valid integer, unable to parse string as an integer"
	msgIntType        = "Input should be a valid integer"
	msgDateParsing    = "Input should be a valid date in the format YYYY-MM-DD"
	msgDateType       = "Input should be a valid date"
	msgJSONInvalid    = "JSON decode error"
	msgAttributesType = "Input should be a valid dictionary or object to extract fields from"
)

const (
	fieldFirstname   = "firstname"
	fieldLastname    = "lastname"
	fieldAge         = "age"
	fieldDateOfBirth = "date_of_birth"
	pathParamUserID  = "user_id"
	locBody          = "body"
	locPath          = "path"
)

// createUserFields lists the body fields in declaration order, which is
// also the order violations are reported in.
var createUserFields = []string{fieldFirstname, fieldLastname, fieldAge, fieldDateOfBirth}

// createUserSchema holds the coerced body. Type checks happen while it is
// filled; the tags cover the remaining constraints.
type createUserSchema struct {
	Firstname   string    `json:"firstname" validate:"required,min=1,max=250"`
	Lastname    string    `json:"lastname" validate:"required,min=1,max=250"`
	Age         int       `json:"age"`
	DateOfBirth time.Time `json:"date_of_birth"`
}

var schemaValidator = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeCreateUser parses and validates a create request body. It returns
// either the input for the use case or a non-empty list of violations.
func DecodeCreateUser(body []byte) (usecase.CreateUserInput, []ValidationErrorDetail) {
	if len(bytes.TrimSpace(body)) == 0 {
		return usecase.CreateUserInput{}, []ValidationErrorDetail{{
			Type:  "missing",
			Loc:   []any{locBody},
			Msg:   msgFieldRequired,
			Input: nil,
		}}
	}

	raw, offset, err := decodeJSON(body)
	if err != nil {
		return usecase.CreateUserInput{}, []ValidationErrorDetail{{
			Type:  "json_invalid",
			Loc:   []any{locBody, offset},
			Msg:   msgJSONInvalid,
			Input: map[string]any{},
		}}
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return usecase.CreateUserInput{}, []ValidationErrorDetail{{
			Type:  "model_attributes_type",
			Loc:   []any{locBody},
			Msg:   msgAttributesType,
			Input: raw,
		}}
	}

	var schema createUserSchema
	byField := make(map[string]ValidationErrorDetail)

	for _, field := range createUserFields {
		value, present := obj[field]
		if !present {
			byField[field] = bodyViolation("missing", field, msgFieldRequired, obj)
			continue
		}

		var violation *ValidationErrorDetail
		switch field {
		case fieldFirstname:
			schema.Firstname, violation = coerceString(field, value)
		case fieldLastname:
			schema.Lastname, violation = coerceString(field, value)
		case fieldAge:
			schema.Age, violation = coerceInt(field, value)
		case fieldDateOfBirth:
			schema.DateOfBirth, violation = coerceDate(field, value)
		}
		if violation != nil {
			byField[field] = *violation
		}
	}

	if err := schemaValidator.Struct(schema); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				field := fe.Field()
				if _, seen := byField[field]; seen {
					continue
				}
				byField[field] = constraintViolation(field, fe.Tag(), obj[field])
			}
		}
	}

	if len(byField) == 0 {
		return usecase.CreateUserInput{
			Firstname:   schema.Firstname,
			Lastname:    schema.Lastname,
			Age:         schema.Age,
			DateOfBirth: schema.DateOfBirth,
		}, nil
	}

	details := make([]ValidationErrorDetail, 0, len(byField))
	for _, field := range createUserFields {
		if d, ok := byField[field]; ok {
			details = append(details, d)
		}
	}
	return usecase.CreateUserInput{}, details
}

// ParseUserID parses the user_id path parameter.
func ParseUserID(raw string) (int64, *ValidationErrorDetail) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ValidationErrorDetail{
			Type:  "int_parsing",
			Loc:   []any{locPath, pathParamUserID},
			Msg:   msgIntParsing,
			Input: raw,
		}
	}
	return id, nil
}

// decodeJSON decodes exactly one JSON value. On failure it reports the byte
// offset where decoding stopped.
func decodeJSON(body []byte) (any, int64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		var syntaxErr *json.SyntaxError
		switch {
		case errors.As(err, &syntaxErr):
			return nil, syntaxErr.Offset, err
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, int64(len(body)), err
		default:
			return nil, dec.InputOffset(), err
		}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, dec.InputOffset(), err
	}

	return raw, 0, nil
}

func bodyViolation(typ, field, msg string, input any) ValidationErrorDetail {
	return ValidationErrorDetail{
		Type:  typ,
		Loc:   []any{locBody, field},
		Msg:   msg,
		Input: input,
	}
}

func violationPtr(typ, field, msg string, input any) *ValidationErrorDetail {
	d := bodyViolation(typ, field, msg, input)
	return &d
}

func constraintViolation(field, tag string, input any) ValidationErrorDetail {
	switch tag {
	case "max":
		return bodyViolation("string_too_long", field, msgStringTooLong, input)
	default:
		// required and min both fire on an empty string that was present
		return bodyViolation("string_too_short", field, msgStringTooShort, input)
	}
}

func coerceString(field string, value any) (string, *ValidationErrorDetail) {
	s, ok := value.(string)
	if !ok {
		return "", violationPtr("string_type", field, msgStringType, value)
	}
	return s, nil
}

// coerceInt accepts JSON integers, integral floats such as 30.0 and
// strings holding an integer.
func coerceInt(field string, value any) (int, *ValidationErrorDetail) {
	switch v := value.(type) {
	case json.Number:
		if n, err := strconv.ParseInt(v.String(), 10, 0); err == nil {
			return int(n), nil
		}
		f, err := v.Float64()
		if err != nil || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, violationPtr("int_type", field, msgIntType, value)
		}
		if f != math.Trunc(f) {
			return 0, violationPtr("int_from_float", field, msgIntFromFloat, value)
		}
		return int(f), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 0)
		if err != nil {
			return 0, violationPtr("int_parsing", field, msgIntParsing, value)
		}
		return int(n), nil
	default:
		return 0, violationPtr("int_type", field, msgIntType, value)
	}
}

func coerceDate(field string, value any) (time.Time, *ValidationErrorDetail) {
	s, ok := value.(string)
	if !ok {
		return time.Time{}, violationPtr("date_type", field, msgDateType, value)
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, violationPtr("date_parsing", field, msgDateParsing, value)
	}
	return d, nil
}
