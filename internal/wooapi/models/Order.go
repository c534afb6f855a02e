package models

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// Order заказ WooCommerce (вебхук order.created/order.updated и /orders), только нужные поля
type Order struct {
	Id             int64      `json:"id"`
	ParentId       int64      `json:"parent_id"`
	Number         string     `json:"number"`
	Status         string     `json:"status"`
	Currency       string     `json:"currency"`
	DateCreated    string     `json:"date_created"`
	DateCreatedGmt string     `json:"date_created_gmt"`
	DateModified   string     `json:"date_modified"`
	CustomerId     int64      `json:"customer_id"`
	Total          string     `json:"total"`
	LineItems      []LineItem `json:"line_items"`
}

type LineItem struct {
	Id          int64           `json:"id"`
	Name        string          `json:"name"`
	ProductId   int64           `json:"product_id"`
	VariationId int64           `json:"variation_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Sku         string          `json:"sku"`
	Total       string          `json:"total"`
}

func (o *Order) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.Id, validation.Required),
		validation.Field(&o.Status, validation.Required),
	)
}
