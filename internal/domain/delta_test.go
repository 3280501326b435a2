package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDelta(t *testing.T) {
	amount := decimal.NewFromInt(200)

	tests := []struct {
		name  string
		kind  TransactionKind
		class AccountClass
		want  string
	}{
		{
			name:  "income into current asset",
			kind:  KindIncome,
			class: ClassCurrentAsset,
			want:  "200",
		},
		{
			name:  "expense from current asset",
			kind:  KindExpense,
			class: ClassCurrentAsset,
			want:  "-200",
		},
		{
			name:  "income into fixed asset",
			kind:  KindIncome,
			class: ClassFixedAsset,
			want:  "200",
		},
		{
			name:  "expense from fixed asset",
			kind:  KindExpense,
			class: ClassFixedAsset,
			want:  "-200",
		},
		{
			name:  "expense charged to current liability grows the debt",
			kind:  KindExpense,
			class: ClassCurrentLiability,
			want:  "200",
		},
		{
			name:  "income paid toward current liability reduces the debt",
			kind:  KindIncome,
			class: ClassCurrentLiability,
			want:  "-200",
		},
		{
			name:  "expense charged to long-term liability grows the debt",
			kind:  KindExpense,
			class: ClassLongTermLiability,
			want:  "200",
		},
		{
			name:  "income paid toward long-term liability reduces the debt",
			kind:  KindIncome,
			class: ClassLongTermLiability,
			want:  "-200",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Delta(tt.kind, tt.class, amount)
			if got.String() != tt.want {
				t.Errorf("Delta(%s, %s, 200) = %s, want %s", tt.kind, tt.class, got, tt.want)
			}
		})
	}
}

func TestDeltaReversal(t *testing.T) {
	// Applying a delta and its negation must cancel exactly for every
	// kind/class combination.
	kinds := []TransactionKind{KindIncome, KindExpense}
	classes := []AccountClass{ClassCurrentAsset, ClassFixedAsset, ClassCurrentLiability, ClassLongTermLiability}
	amount := decimal.RequireFromString("123.45")

	for _, k := range kinds {
		for _, c := range classes {
			d := Delta(k, c, amount)
			if !d.Add(d.Neg()).IsZero() {
				t.Errorf("Delta(%s, %s) does not cancel with its negation", k, c)
			}
			if d.Abs().Cmp(amount) != 0 {
				t.Errorf("Delta(%s, %s) magnitude = %s, want %s", k, c, d.Abs(), amount)
			}
		}
	}
}

func TestAccountClassSign(t *testing.T) {
	tests := []struct {
		class AccountClass
		want  int
	}{
		{ClassCurrentAsset, 1},
		{ClassFixedAsset, 1},
		{ClassCurrentLiability, -1},
		{ClassLongTermLiability, -1},
		{AccountClass("bogus"), 0},
	}

	for _, tt := range tests {
		if got := tt.class.Sign(); got != tt.want {
			t.Errorf("%s.Sign() = %d, want %d", tt.class, got, tt.want)
		}
	}
}

func TestSignedAmount(t *testing.T) {
	tx := &Transaction{Kind: KindExpense, Amount: decimal.NewFromInt(50)}
	if got := tx.SignedAmount().String(); got != "-50" {
		t.Errorf("expense SignedAmount = %s, want -50", got)
	}
	tx.Kind = KindIncome
	if got := tx.SignedAmount().String(); got != "50" {
		t.Errorf("income SignedAmount = %s, want 50", got)
	}
}
