package memory

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"rails/internal/ports"
)

func testBank() *Bank {
	return NewBank(Setup{
		Participants: []string{"P1", "P2"},
		StartingCash: 600,
		BankCash:     10000,
		Companies: []CompanySpec{
			{ID: "PRR", ParPrice: 100, Shares: 10, FloatPercent: 60},
			{ID: "NYC", ParPrice: 90, Shares: 10, FloatPercent: 60},
		},
		Resources: []ResourceSpec{{Name: "2", Count: 2, Price: 80}},
		Ladder:    []int64{60, 70, 80, 90, 100, 110, 120},
	})
}

func TestBank_LedgerRespectsBlockedCash(t *testing.T) {
	b := testBank()
	check.Equal(t, int64(600), b.Cash("P1"))
	check.Equal(t, int64(8800), b.BankCash())

	assert.NoError(t, b.BlockCash("P1", 500))
	err := b.Transfer("P1", "P2", 200)
	check.True(t, errors.Is(err, ports.ErrInsufficientCash))
	check.Equal(t, int64(600), b.Cash("P1"))

	assert.NoError(t, b.UnblockCash("P1", 500))
	assert.NoError(t, b.Transfer("P1", "P2", 200))
	check.Equal(t, int64(800), b.Cash("P2"))
	check.Error(t, b.UnblockCash("P1", 1))
}

func TestBank_SharesFloatAndPresident(t *testing.T) {
	b := testBank()
	for i := 0; i < 3; i++ {
		_, payee, err := b.BuyShare("P1", "PRR")
		assert.NoError(t, err)
		check.Equal(t, "PRR", payee)
	}
	for i := 0; i < 2; i++ {
		_, _, err := b.BuyShare("P2", "PRR")
		assert.NoError(t, err)
	}
	c, _ := b.Company("PRR")
	check.Equal(t, "P1", c.President)
	check.False(t, c.Floated)
	check.Equal(t, int64(500), b.Cash("PRR"))

	// ties keep the sitting president
	_, _, err := b.BuyShare("P2", "PRR")
	assert.NoError(t, err)
	c, _ = b.Company("PRR")
	check.True(t, c.Floated)
	check.Equal(t, "P1", c.President)
	check.Equal(t, []string{"PRR"}, b.OperatingOrder())

	_, _, err = b.BuyShare("P2", "PRR")
	assert.NoError(t, err)
	c, _ = b.Company("PRR")
	check.Equal(t, "P2", c.President)
}

func TestBank_SellDropsPriceAndRespectsPoolLimit(t *testing.T) {
	b := testBank()
	for i := 0; i < 6; i++ {
		_, _, err := b.BuyShare("P1", "PRR")
		assert.NoError(t, err)
	}
	check.Equal(t, int64(100), b.Price("PRR"))

	for i := 0; i < 5; i++ {
		_, err := b.SellShare("P1", "PRR")
		assert.NoError(t, err)
	}
	check.Equal(t, int64(60), b.Price("PRR"))
	check.False(t, b.CanSell("P1", "PRR"))
	_, err := b.SellShare("P1", "PRR")
	check.Error(t, err)
}

func TestBank_Resources(t *testing.T) {
	b := testBank()
	assert.NoError(t, b.MarkConsumed("2", "PRR"))
	assert.NoError(t, b.MarkConsumed("2", "NYC"))
	check.Equal(t, 0, b.Remaining("2"))
	check.Error(t, b.MarkConsumed("2", "PRR"))

	check.Equal(t, map[string]int{"2": 1}, b.Held("PRR"))
	check.Equal(t, []string{"NYC", "PRR"}, b.Rust("2"))
	check.Equal(t, 0, len(b.Held("PRR")))
	check.Error(t, b.Discard("PRR", "2"))
}
