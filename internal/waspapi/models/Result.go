package models

import (
	"fmt"
	"net/http"
)

const (
	RESULT_SUCCESS = "success"
	RESULT_ERROR   = "error"
)

// ErrorKind тип ошибки вызова WASP API
type ErrorKind string

const (
	KIND_NONE       ErrorKind = ""
	KIND_VALIDATION ErrorKind = "validation"
	KIND_TRANSPORT  ErrorKind = "transport"
	KIND_SEMANTIC   ErrorKind = "semantic"
)

// Result ответ обертки над WASP API. Ошибки удаленной стороны не возвращаются как error,
// а описываются полями результата.
type Result struct {
	StatusCode   int       `json:"status_code"`
	Result       string    `json:"result"`
	APIResponse  string    `json:"api_response,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Kind         ErrorKind `json:"-"`

	// только для LookupItem
	Locations []Location `json:"-"`
}

func (r *Result) Success() bool {
	return r != nil && r.Result == RESULT_SUCCESS
}

// Err *ErrorWasp для неуспешного результата, nil для успешного
func (r *Result) Err() error {
	if r.Success() {
		return nil
	}
	if r == nil {
		return &ErrorWasp{Kind: KIND_TRANSPORT, Message: "empty result"}
	}
	return &ErrorWasp{StatusCode: r.StatusCode, Kind: r.Kind, Message: r.ErrorMessage}
}

func NewSuccess(statusCode int, body string) *Result {
	return &Result{
		StatusCode:  statusCode,
		Result:      RESULT_SUCCESS,
		APIResponse: body,
	}
}

func NewError(kind ErrorKind, statusCode int, body, message string) *Result {
	return &Result{
		StatusCode:   statusCode,
		Result:       RESULT_ERROR,
		APIResponse:  body,
		ErrorMessage: message,
		Kind:         kind,
	}
}

// NewValidationError пустой токен или данные запроса, в сеть не ходим
func NewValidationError(message string) *Result {
	return NewError(KIND_VALIDATION, http.StatusBadRequest, "", message)
}

type ErrorWasp struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *ErrorWasp) Error() string {
	return fmt.Sprintf("kind:%s; status:%d; message:%s;", e.Kind, e.StatusCode, e.Message)
}
