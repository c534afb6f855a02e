package models

// TransactionPayload строка для transactions/item/remove и transactions/item/add.
// Даты в формате DateFormat.
type TransactionPayload struct {
	ItemNumber     string  `json:"ItemNumber"`
	Quantity       float64 `json:"Quantity"`
	CustomerNumber string  `json:"CustomerNumber,omitempty"`
	SiteName       string  `json:"SiteName"`
	LocationCode   string  `json:"LocationCode"`
	RemoveDate     string  `json:"RemoveDate,omitempty"`
	DateAcquired   string  `json:"DateAcquired,omitempty"`
	Cost           float64 `json:"Cost,omitempty"`
	Notes          string  `json:"Notes,omitempty"`
}

const DateFormat = "2006-01-02T15:04:05"

type TransactionResponse struct {
	Data *struct {
		ResultList []TransactionResult `json:"ResultList"`
	} `json:"Data"`
	HasError bool      `json:"HasError"`
	Messages []Message `json:"Messages"`
}

type TransactionResult struct {
	Message        string `json:"Message"`
	HttpStatusCode int    `json:"HttpStatusCode"`
	ResultSetIndex int    `json:"ResultSetIndex"`
}

// First первая строка ResultList или nil
func (t *TransactionResponse) First() *TransactionResult {
	if t == nil || t.Data == nil || len(t.Data.ResultList) == 0 {
		return nil
	}
	return &t.Data.ResultList[0]
}
