package models

import "fmt"

// ErrorWoo тело ошибки WooCommerce REST API
type ErrorWoo struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Data       struct {
		Status int `json:"status"`
	} `json:"data"`
}

func (e *ErrorWoo) Error() string {
	return fmt.Sprintf("woocommerce: http %d; code:%s; message:%s", e.StatusCode, e.Code, e.Message)
}
