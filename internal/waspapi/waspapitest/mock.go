// Package waspapitest подмена WASP API для тестов
package waspapitest

import (
	"context"
	gosync "sync"

	"WooWithWasp/internal/waspapi/models"
)

type APIMock struct {
	mu gosync.Mutex

	Lookup func(itemNumber string) *models.Result
	Remove func(payload []*models.TransactionPayload) *models.Result
	Add    func(payload []*models.TransactionPayload) *models.Result

	Lookups []string
	Removed []*models.TransactionPayload
	Added   []*models.TransactionPayload
}

func (m *APIMock) LookupItem(ctx context.Context, itemNumber string) *models.Result {
	m.mu.Lock()
	m.Lookups = append(m.Lookups, itemNumber)
	m.mu.Unlock()
	if m.Lookup == nil {
		return models.NewError(models.KIND_SEMANTIC, 200, `{}`, "no Data in WASP API response")
	}
	return m.Lookup(itemNumber)
}

func (m *APIMock) RemoveTransaction(ctx context.Context, payload []*models.TransactionPayload) *models.Result {
	m.mu.Lock()
	m.Removed = append(m.Removed, payload...)
	m.mu.Unlock()
	if m.Remove == nil {
		return Success()
	}
	return m.Remove(payload)
}

func (m *APIMock) AddTransaction(ctx context.Context, payload []*models.TransactionPayload) *models.Result {
	m.mu.Lock()
	m.Added = append(m.Added, payload...)
	m.mu.Unlock()
	if m.Add == nil {
		return Success()
	}
	return m.Add(payload)
}

func Success() *models.Result {
	return models.NewSuccess(200, `{"Data":{"ResultList":[{"Message":"Success","HttpStatusCode":200}]}}`)
}

// Locations успешный ответ inventorysearch с парами SiteName/LocationCode
func Locations(pairs ...[2]string) *models.Result {
	r := models.NewSuccess(200, `{"Data":[]}`)
	for _, p := range pairs {
		r.Locations = append(r.Locations, models.Location{SiteName: p[0], LocationCode: p[1]})
	}
	return r
}
