package options

import (
	"strconv"
	"time"
)

type OptionStruct struct {
	Key   string
	Value string
}

type Option func(*OptionStruct)

func Page(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "page"
		f.Value = strconv.Itoa(value)
	}
}

func PerPage(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "per_page"
		f.Value = strconv.Itoa(value)
	}
}

func Status(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "status"
		f.Value = value
	}
}

// After заказы, созданные после value (ISO8601 в зоне магазина)
func After(value time.Time) Option {
	return func(f *OptionStruct) {
		f.Key = "after"
		f.Value = value.Format("2006-01-02T15:04:05")
	}
}

func OrderAsc() Option {
	return func(f *OptionStruct) {
		f.Key = "order"
		f.Value = "asc"
	}
}
