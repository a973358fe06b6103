package handler

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"
)

// roundTrip normalises details through JSON so they compare like a client
// would see them.
func roundTrip(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestDecodeCreateUser_Valid(t *testing.T) {
	input, details := DecodeCreateUser([]byte(`{"firstname":"Bruce","lastname":"Wayne","age":30,"date_of_birth":"1939-02-19"}`))
	if details != nil {
		t.Fatalf("expected no violations, got %+v", details)
	}
	if input.Firstname != "Bruce" || input.Lastname != "Wayne" || input.Age != 30 {
		t.Fatalf("unexpected input: %+v", input)
	}
	if want := time.Date(1939, 2, 19, 0, 0, 0, 0, time.UTC); !input.DateOfBirth.Equal(want) {
		t.Fatalf("expected %v, got %v", want, input.DateOfBirth)
	}
}

func TestDecodeCreateUser_LaxAge(t *testing.T) {
	for _, age := range []string{`30.0`, `"30"`, `3e1`} {
		body := `{"firstname":"Bruce","lastname":"Wayne","age":` + age + `,"date_of_birth":"1939-02-19"}`
		input, details := DecodeCreateUser([]byte(body))
		if details != nil {
			t.Fatalf("age %s: expected no violations, got %+v", age, details)
		}
		if input.Age != 30 {
			t.Fatalf("age %s: expected 30, got %d", age, input.Age)
		}
	}
}

func TestDecodeCreateUser_MissingLastname(t *testing.T) {
	_, details := DecodeCreateUser([]byte(`{"firstname":"Bruce","age":30,"date_of_birth":"1939-02-19"}`))

	want := []any{
		map[string]any{
			"type": "missing",
			"loc":  []any{"body", "lastname"},
			"msg":  "Field required",
			"input": map[string]any{
				"firstname":     "Bruce",
				"age":           float64(30),
				"date_of_birth": "1939-02-19",
			},
		},
	}
	if got := roundTrip(t, details); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected details:\n got: %#v\nwant: %#v", got, want)
	}
}

func TestDecodeCreateUser_FieldViolations(t *testing.T) {
	long := strings.Repeat("x", 251)

	tests := []struct {
		name  string
		body  string
		typ   string
		field string
		msg   string
		input any
	}{
		{"empty firstname", `{"firstname":"","lastname":"Wayne","age":30,"date_of_birth":"1939-02-19"}`,
			"string_too_short", "firstname", msgStringTooShort, ""},
		{"long lastname", `{"firstname":"Bruce","lastname":"` + long + `","age":30,"date_of_birth":"1939-02-19"}`,
			"string_too_long", "lastname", msgStringTooLong, long},
		{"numeric firstname", `{"firstname":42,"lastname":"Wayne","age":30,"date_of_birth":"1939-02-19"}`,
			"string_type", "firstname", msgStringType, float64(42)},
		{"null lastname", `{"firstname":"Bruce","lastname":null,"age":30,"date_of_birth":"1939-02-19"}`,
			"string_type", "lastname", msgStringType, nil},
		{"fractional age", `{"firstname":"Bruce","lastname":"Wayne","age":30.5,"date_of_birth":"1939-02-19"}`,
			"int_from_float", "age", msgIntFromFloat, 30.5},
		{"word age", `{"firstname":"Bruce","lastname":"Wayne","age":"thirty","date_of_birth":"1939-02-19"}`,
			"int_parsing", "age", msgIntParsing, "thirty"},
		{"bool age", `{"firstname":"Bruce","lastname":"Wayne","age":true,"date_of_birth":"1939-02-19"}`,
			"int_type", "age", msgIntType, true},
		{"null age", `{"firstname":"Bruce","lastname":"Wayne","age":null,"date_of_birth":"1939-02-19"}`,
			"int_type", "age", msgIntType, nil},
		{"bad date", `{"firstname":"Bruce","lastname":"Wayne","age":30,"date_of_birth":"19/02/1939"}`,
			"date_parsing", "date_of_birth", msgDateParsing, "19/02/1939"},
		{"impossible date", `{"firstname":"Bruce","lastname":"Wayne","age":30,"date_of_birth":"1939-02-30"}`,
			"date_parsing", "date_of_birth", msgDateParsing, "1939-02-30"},
		{"numeric date", `{"firstname":"Bruce","lastname":"Wayne","age":30,"date_of_birth":[1939]}`,
			"date_type", "date_of_birth", msgDateType, []any{float64(1939)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, details := DecodeCreateUser([]byte(tc.body))
			want := []any{map[string]any{
				"type":  tc.typ,
				"loc":   []any{"body", tc.field},
				"msg":   tc.msg,
				"input": tc.input,
			}}
			if got := roundTrip(t, details); !reflect.DeepEqual(got, want) {
				t.Fatalf("unexpected details:\n got: %#v\nwant: %#v", got, want)
			}
		})
	}
}

func TestDecodeCreateUser_ViolationsFollowFieldOrder(t *testing.T) {
	_, details := DecodeCreateUser([]byte(`{"date_of_birth":"nope","age":"x","firstname":""}`))

	var got []string
	for _, d := range details {
		got = append(got, d.Type+":"+d.Loc[1].(string))
	}
	want := []string{
		"string_too_short:firstname",
		"missing:lastname",
		"int_parsing:age",
		"date_parsing:date_of_birth",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestDecodeCreateUser_BodyErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want any
	}{
		{"empty", ``, []any{map[string]any{
			"type": "missing", "loc": []any{"body"}, "msg": msgFieldRequired, "input": nil,
		}}},
		{"invalid json", `{"firstname":`, []any{map[string]any{
			"type": "json_invalid", "loc": []any{"body", float64(13)}, "msg": msgJSONInvalid, "input": map[string]any{},
		}}},
		{"array", `[1,2]`, []any{map[string]any{
			"type": "model_attributes_type", "loc": []any{"body"}, "msg": msgAttributesType,
			"input": []any{float64(1), float64(2)},
		}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, details := DecodeCreateUser([]byte(tc.body))
			if got := roundTrip(t, details); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("unexpected details:\n got: %#v\nwant: %#v", got, tc.want)
			}
		})
	}
}

func TestDecodeCreateUser_TrailingDataIsInvalid(t *testing.T) {
	_, details := DecodeCreateUser([]byte(`{"firstname":"a"} {}`))
	if len(details) != 1 || details[0].Type != "json_invalid" {
		t.Fatalf("expected json_invalid, got %+v", details)
	}
}

func TestParseUserID(t *testing.T) {
	id, detail := ParseUserID("42")
	if detail != nil || id != 42 {
		t.Fatalf("expected 42, got %d (%+v)", id, detail)
	}

	_, detail = ParseUserID("abc")
	if detail == nil {
		t.Fatal("expected violation")
	}
	want := map[string]any{
		"type":  "int_parsing",
		"loc":   []any{"path", "user_id"},
		"msg":   msgIntParsing,
		"input": "abc",
	}
	if got := roundTrip(t, detail); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected detail:\n got: %#v\nwant: %#v", got, want)
	}
}
