package balance_test

import (
	"testing"

	"github.com/infomarket/server/internal/market/model"
)

func TestCheckBalanceInvariant(t *testing.T) {
	cases := []struct {
		name      string
		total     float64
		available float64
		want      bool
	}{
		{"equal", 100, 100, true},
		{"zero available", 100, 0, true},
		{"negative available", 100, -1, false},
		{"available exceeds total", 100, 101, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := &model.User{TotalBalance: tc.total, AvailableBalance: tc.available}
			if got := u.CheckBalanceInvariant(); got != tc.want {
				t.Errorf("CheckBalanceInvariant() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestErrInsufficientFunds_Error(t *testing.T) {
	err := &model.ErrInsufficientFunds{Available: 10, Requested: 40}
	if err.Error() == "" {
		t.Fatal("expected non-empty error message")
	}
}
