package catalog

import (
	"github.com/shopspring/decimal"
)

// PricingMode способ расчёта цены продуктовой линейки
type PricingMode int

const (
	PricingPerUnit PricingMode = iota // количество × цена за единицу
	PricingPackage                    // фиксированные пакеты
	PricingQuoted                     // итоговая сумма согласована с покупателем заранее
)

// Package фиксированный пакет с ценой (Premium на 3 месяца и т.п.)
type Package struct {
	Code  string
	Title string
	Price decimal.Decimal
}

// Surcharge сбор за малый заказ: при количестве ниже Threshold
// покупатель получает на Amount единиц меньше, а платит за всё запрошенное.
type Surcharge struct {
	Threshold decimal.Decimal
	Amount    decimal.Decimal
}

// Applies сработает ли сбор для данного количества
func (s Surcharge) Applies(units decimal.Decimal) bool {
	return s.Amount.IsPositive() && units.LessThan(s.Threshold)
}

// Field одно поле схемы данных доставки
type Field struct {
	Key     string
	Label   string
	Aliases []string // подписи, по которым поле ищется в тексте "подпись: значение"
	Rule    string   // теги validator поверх обязательности
	TrimAt  bool     // срезать ведущий @ (юзернеймы)
}

// ProductLine настройка одной продуктовой линейки
type ProductLine struct {
	Code       string
	Title      string
	Unit       string
	Currency   string
	Pricing    PricingMode
	UnitPrice  decimal.Decimal
	MinUnits   decimal.Decimal
	WholeUnits bool
	Surcharge  Surcharge
	Packages   []Package
	Delivery   []Field
}

// Package ищет пакет по коду
func (p ProductLine) Package(code string) (Package, bool) {
	for _, pkg := range p.Packages {
		if pkg.Code == code {
			return pkg, true
		}
	}
	return Package{}, false
}

// Catalog набор продуктовых линеек в порядке показа в меню
type Catalog struct {
	lines map[string]ProductLine
	order []string
}

func New(lines ...ProductLine) *Catalog {
	c := &Catalog{lines: make(map[string]ProductLine, len(lines))}
	for _, l := range lines {
		if _, ok := c.lines[l.Code]; !ok {
			c.order = append(c.order, l.Code)
		}
		c.lines[l.Code] = l
	}
	return c
}

// Line возвращает линейку по коду
func (c *Catalog) Line(code string) (ProductLine, bool) {
	l, ok := c.lines[code]
	return l, ok
}

// Lines все линейки в порядке добавления
func (c *Catalog) Lines() []ProductLine {
	res := make([]ProductLine, 0, len(c.order))
	for _, code := range c.order {
		res = append(res, c.lines[code])
	}
	return res
}

const currencyETB = "ETB"

var usernameField = Field{Key: "username", Label: "username", Aliases: []string{"username", "user"}, Rule: "tg_username", TrimAt: true}

func walletField(rule string) Field {
	return Field{Key: "wallet", Label: "wallet", Aliases: []string{"wallet", "address"}, Rule: rule}
}

// Default линейки магазина с текущими ценами
func Default() *Catalog {
	return New(
		ProductLine{
			Code:      "usdt",
			Title:     "USDT (TRC20)",
			Unit:      "USDT",
			Currency:  currencyETB,
			Pricing:   PricingPerUnit,
			UnitPrice: decimal.NewFromInt(167),
			MinUnits:  decimal.NewFromInt(3),
			Surcharge: Surcharge{Threshold: decimal.NewFromInt(50), Amount: decimal.NewFromInt(1)},
			Delivery:  []Field{walletField("startswith=T")},
		},
		ProductLine{
			Code:       "stars",
			Title:      "Telegram Stars",
			Unit:       "stars",
			Currency:   currencyETB,
			Pricing:    PricingPerUnit,
			UnitPrice:  decimal.RequireFromString("2.27"),
			MinUnits:   decimal.NewFromInt(100),
			WholeUnits: true,
			Delivery:   []Field{usernameField},
		},
		ProductLine{
			Code:      "ton",
			Title:     "TON",
			Unit:      "TON",
			Currency:  currencyETB,
			Pricing:   PricingPerUnit,
			UnitPrice: decimal.NewFromInt(540),
			MinUnits:  decimal.RequireFromString("0.5"),
			Delivery:  []Field{walletField("startswith=UQ|startswith=EQ")},
		},
		ProductLine{
			Code:     "premium",
			Title:    "Telegram Premium",
			Unit:     "subscription",
			Currency: currencyETB,
			Pricing:  PricingPackage,
			Packages: []Package{
				{Code: "3m", Title: "3 Month", Price: decimal.NewFromInt(2499)},
				{Code: "6m", Title: "6 Month", Price: decimal.NewFromInt(3199)},
				{Code: "1y", Title: "1 Year", Price: decimal.NewFromInt(5199)},
			},
			Delivery: []Field{usernameField},
		},
		ProductLine{
			Code:       "tiktok",
			Title:      "TikTok coins",
			Unit:       "coins",
			Currency:   currencyETB,
			Pricing:    PricingPerUnit,
			UnitPrice:  decimal.RequireFromString("2.7"),
			MinUnits:   decimal.NewFromInt(100),
			WholeUnits: true,
			Delivery: []Field{
				{Key: "login", Label: "login", Aliases: []string{"login", "email", "phone"}},
				{Key: "password", Label: "password", Aliases: []string{"password", "pass"}},
			},
		},
		ProductLine{
			Code:     "aliexpress",
			Title:    "AliExpress order",
			Unit:     "order",
			Currency: currencyETB,
			Pricing:  PricingQuoted,
			MinUnits: decimal.NewFromInt(1),
			Delivery: []Field{
				{Key: "street", Label: "street", Aliases: []string{"street"}},
				{Key: "state", Label: "state", Aliases: []string{"state", "province"}},
				{Key: "city", Label: "city", Aliases: []string{"city"}},
				{Key: "zip_code", Label: "zip code", Aliases: []string{"zip", "postal"}},
				{Key: "contact_name", Label: "contact name", Aliases: []string{"contact name", "contact", "recipient", "name"}},
				{Key: "contact_phone", Label: "contact phone", Aliases: []string{"contact phone", "mobile", "phone"}},
			},
		},
		ProductLine{
			Code:     "digital",
			Title:    "Digital products",
			Unit:     "item",
			Currency: currencyETB,
			Pricing:  PricingPackage,
			Packages: []Package{
				{Code: "notion", Title: "Notion templates pack", Price: decimal.NewFromInt(500)},
				{Code: "ebook", Title: "E-book bundle", Price: decimal.NewFromInt(500)},
			},
			Delivery: []Field{{Key: "email", Label: "email", Aliases: []string{"email", "mail"}, Rule: "email"}},
		},
	)
}
