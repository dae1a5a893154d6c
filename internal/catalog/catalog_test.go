package catalog_test

import (
	"testing"

	"github.com/linemk/plugmarket-bot/internal/catalog"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeQuote(t *testing.T) {
	rule := catalog.Surcharge{Threshold: dec("50"), Amount: dec("1")}

	cases := []struct {
		name      string
		units     string
		price     string
		charge    string
		delivered string
	}{
		{"ниже порога - сбор вычитается из выдачи", "49", "2.7", "132.3", "48"},
		{"ровно порог - без сбора", "50", "2.7", "135", "50"},
		{"выше порога", "120", "167", "20040", "120"},
		{"минимальная сумма", "3", "167", "501", "2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			charge, delivered := catalog.ComputeQuote(dec(tc.units), dec(tc.price), rule)
			assert.True(t, dec(tc.charge).Equal(charge), "charge: got %s", charge)
			assert.True(t, dec(tc.delivered).Equal(delivered), "delivered: got %s", delivered)
		})
	}
}

func TestComputeQuote_NoSurcharge(t *testing.T) {
	charge, delivered := catalog.ComputeQuote(dec("10"), dec("2.27"), catalog.Surcharge{})
	assert.True(t, dec("22.7").Equal(charge))
	assert.True(t, dec("10").Equal(delivered))
}

func TestQuote_PerUnit(t *testing.T) {
	usdt, ok := catalog.Default().Line("usdt")
	require.True(t, ok)

	sel := models.Selection{Units: dec("49")}
	q, err := usdt.Quote(&sel)
	require.NoError(t, err)
	assert.True(t, dec("8183").Equal(q.Amount))
	assert.True(t, dec("48").Equal(q.Delivered))
	assert.True(t, dec("1").Equal(q.Surcharge))
	assert.Equal(t, "ETB", q.Currency)
	assert.Equal(t, "49 USDT", sel.Description)
}

func TestQuote_BelowMinimum(t *testing.T) {
	stars, _ := catalog.Default().Line("stars")

	sel := models.Selection{Units: dec("99")}
	_, err := stars.Quote(&sel)
	assert.ErrorIs(t, err, catalog.ErrBelowMinimum)

	sel = models.Selection{Units: dec("-5")}
	_, err = stars.Quote(&sel)
	assert.ErrorIs(t, err, catalog.ErrBelowMinimum)
}

func TestQuote_WholeUnits(t *testing.T) {
	stars, _ := catalog.Default().Line("stars")
	sel := models.Selection{Units: dec("150.5")}
	_, err := stars.Quote(&sel)
	assert.ErrorIs(t, err, catalog.ErrFractionalUnits)

	ton, _ := catalog.Default().Line("ton")
	sel = models.Selection{Units: dec("0.5")}
	q, err := ton.Quote(&sel)
	require.NoError(t, err)
	assert.True(t, dec("270").Equal(q.Amount))
}

func TestQuote_Package(t *testing.T) {
	premium, _ := catalog.Default().Line("premium")

	sel := models.Selection{Package: "6m"}
	q, err := premium.Quote(&sel)
	require.NoError(t, err)
	assert.True(t, dec("3199").Equal(q.Amount))
	assert.True(t, dec("1").Equal(sel.Units))
	assert.Equal(t, "Telegram Premium 6 Month", sel.Description)

	sel = models.Selection{Package: "2y"}
	_, err = premium.Quote(&sel)
	assert.ErrorIs(t, err, catalog.ErrUnknownPackage)
}

func TestQuote_Quoted(t *testing.T) {
	ali, _ := catalog.Default().Line("aliexpress")

	sel := models.Selection{Units: dec("12345"), Description: "https://aliexpress.com/item/1"}
	q, err := ali.Quote(&sel)
	require.NoError(t, err)
	assert.True(t, dec("12345").Equal(q.Amount))

	sel = models.Selection{Units: dec("12345")}
	_, err = ali.Quote(&sel)
	assert.ErrorIs(t, err, catalog.ErrNoDescription)
}

func TestValidateDelivery_MissingPhone(t *testing.T) {
	ali, _ := catalog.Default().Line("aliexpress")

	target := ali.ParseDeliveryText(`Street: Bole road 12
State: Addis Ababa
City: Addis Ababa
Zip code: 1000
Contact name: Abebe Kebede`)

	missing, invalid := ali.ValidateDelivery(ali.NormalizeDelivery(target))
	assert.Equal(t, []string{"contact phone"}, missing)
	assert.Empty(t, invalid)
}

func TestParseDeliveryText_LongestAliasWins(t *testing.T) {
	ali, _ := catalog.Default().Line("aliexpress")

	target := ali.ParseDeliveryText("Contact phone: +251911000000\nContact: Abebe\nProvince: Oromia")
	assert.Equal(t, "+251911000000", target["contact_phone"])
	assert.Equal(t, "Abebe", target["contact_name"])
	assert.Equal(t, "Oromia", target["state"])
}

func TestValidateDelivery_Formats(t *testing.T) {
	c := catalog.Default()

	cases := []struct {
		product string
		text    string
		invalid []string
	}{
		{"usdt", "TXyz1234567890abcdef", nil},
		{"usdt", "0xabc", []string{"wallet"}},
		{"ton", "UQBa1234", nil},
		{"ton", "EQBa1234", nil},
		{"ton", "TQBa1234", []string{"wallet"}},
		{"stars", "@plug_buyer", nil},
		{"stars", "@a", []string{"username"}},
		{"digital", "buyer@example.com", nil},
		{"digital", "not-an-email", []string{"email"}},
	}
	for _, tc := range cases {
		t.Run(tc.product+"/"+tc.text, func(t *testing.T) {
			line, ok := c.Line(tc.product)
			require.True(t, ok)
			target := line.NormalizeDelivery(line.ParseDeliveryText(tc.text))
			missing, invalid := line.ValidateDelivery(target)
			assert.Empty(t, missing)
			assert.Equal(t, tc.invalid, invalid)
		})
	}
}

func TestNormalizeDelivery_TrimsAt(t *testing.T) {
	stars, _ := catalog.Default().Line("stars")
	got := stars.NormalizeDelivery(models.DeliveryTarget{"username": "  @plug_buyer ", "junk": "x"})
	assert.Equal(t, models.DeliveryTarget{"username": "plug_buyer"}, got)
}

func TestDeliveryTemplate(t *testing.T) {
	tiktok, _ := catalog.Default().Line("tiktok")
	assert.Equal(t, "Login: \nPassword: ", tiktok.DeliveryTemplate())
}
