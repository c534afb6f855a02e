package models

import "github.com/shopspring/decimal"

type InventorySearchRequest struct {
	ItemNumber string `json:"ItemNumber"`
}

// InventorySearchResponse ответ inventorysearch. Data - указатель, чтобы отличить
// отсутствующий ключ от пустого массива.
type InventorySearchResponse struct {
	Data     *[]Location `json:"Data"`
	HasError bool        `json:"HasError"`
	Messages []Message   `json:"Messages"`
}

type Location struct {
	ItemNumber      string          `json:"ItemNumber"`
	ItemDescription string          `json:"ItemDescription"`
	SiteName        string          `json:"SiteName"`
	LocationCode    string          `json:"LocationCode"`
	TotalAvailable  decimal.Decimal `json:"TotalAvailable"`
	TotalInHouse    decimal.Decimal `json:"TotalInHouse"`
}

type Message struct {
	Message          string `json:"Message"`
	MessageCode      int    `json:"MessageCode"`
	HttpStatusCode   int    `json:"HttpStatusCode"`
	PropertyName     string `json:"PropertyName"`
	ResultSetLocator string `json:"ResultSetLocator"`
}
