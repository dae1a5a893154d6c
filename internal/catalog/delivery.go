package catalog

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/plugmarket-bot/internal/domain/models"
)

// юзернейм телеграма: 5-32 символа, латиница, цифры и подчёркивание, начинается с буквы
var tgUsernameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,31}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tg_username", func(fl validator.FieldLevel) bool {
		return tgUsernameRe.MatchString(fl.Field().String())
	})
	return v
}

// NormalizeDelivery оставляет только поля схемы, обрезает пробелы и @
func (p ProductLine) NormalizeDelivery(in models.DeliveryTarget) models.DeliveryTarget {
	out := make(models.DeliveryTarget, len(p.Delivery))
	for _, f := range p.Delivery {
		v := strings.TrimSpace(in[f.Key])
		if f.TrimAt {
			v = strings.TrimPrefix(v, "@")
		}
		if v != "" {
			out[f.Key] = v
		}
	}
	return out
}

// ValidateDelivery возвращает подписи отсутствующих и некорректных полей в порядке схемы
func (p ProductLine) ValidateDelivery(target models.DeliveryTarget) (missing, invalid []string) {
	for _, f := range p.Delivery {
		v, ok := target[f.Key]
		if !ok || v == "" {
			missing = append(missing, f.Label)
			continue
		}
		if f.Rule == "" {
			continue
		}
		if err := validate.Var(v, f.Rule); err != nil {
			invalid = append(invalid, f.Label)
		}
	}
	return missing, invalid
}

// ParseDeliveryText разбирает сообщение покупателя.
// Для схемы из одного поля всё сообщение - значение поля,
// иначе ищутся строки "подпись: значение"; при совпадении нескольких полей побеждает самая длинная подпись.
func (p ProductLine) ParseDeliveryText(text string) models.DeliveryTarget {
	target := make(models.DeliveryTarget)
	text = strings.TrimSpace(text)
	if text == "" {
		return target
	}
	if len(p.Delivery) == 1 {
		target[p.Delivery[0].Key] = text
		return target
	}

	for _, line := range strings.Split(text, "\n") {
		label, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		label = strings.ToLower(strings.TrimSpace(label))
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			continue
		}

		best, bestLen := "", 0
		for _, f := range p.Delivery {
			for _, alias := range f.Aliases {
				if strings.Contains(label, alias) && len(alias) > bestLen {
					best, bestLen = f.Key, len(alias)
				}
			}
		}
		if best != "" {
			if _, seen := target[best]; !seen {
				target[best] = value
			}
		}
	}
	return target
}

// DeliveryTemplate шаблон, который покупатель копирует и заполняет
func (p ProductLine) DeliveryTemplate() string {
	if len(p.Delivery) == 1 {
		return p.Delivery[0].Label
	}
	var b strings.Builder
	for _, f := range p.Delivery {
		b.WriteString(strings.ToUpper(f.Label[:1]))
		b.WriteString(f.Label[1:])
		b.WriteString(": \n")
	}
	return strings.TrimRight(b.String(), "\n")
}
