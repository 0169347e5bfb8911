package model

import (
	"math"
	"testing"
)

func TestWindowOffset(t *testing.T) {
	tests := []struct {
		page, size int
		want       int
	}{
		{1, 10, 0},
		{2, 10, 10},
		{4, 25, 75},
		{0, 10, 0},
		{1<<62 + 1, 2, math.MaxInt},
		{math.MaxInt, math.MaxInt, math.MaxInt},
	}

	for _, tt := range tests {
		w := Window{Page: tt.page, PageSize: tt.size}
		if got := w.Offset(); got != tt.want {
			t.Errorf("Window{Page: %d, PageSize: %d}.Offset() = %d, want %d", tt.page, tt.size, got, tt.want)
		}
	}
}

func TestStoreCurrencyCode(t *testing.T) {
	tests := []struct {
		name  string
		store Store
		want  string
	}{
		{
			name:  "default store reports base currency",
			store: Store{ID: 0, BaseCurrency: "USD", CurrentCurrency: "EUR"},
			want:  "USD",
		},
		{
			name:  "store view reports selling currency",
			store: Store{ID: 1, BaseCurrency: "USD", CurrentCurrency: "EUR"},
			want:  "EUR",
		},
		{
			name:  "missing selling currency falls back to base",
			store: Store{ID: 2, BaseCurrency: "USD"},
			want:  "USD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.store.CurrencyCode(); got != tt.want {
				t.Errorf("CurrencyCode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "page_size", Message: "must be >= 1"}
	if got, want := err.Error(), "invalid page_size: must be >= 1"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
