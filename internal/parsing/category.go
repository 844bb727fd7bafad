package parsing

import "strings"

// categoryRule maps a category to its trigger keywords. Rules are evaluated
// top-down against the lowercased raw text and the first match wins, so
// ordering matters where keywords are ambiguous across categories. Transfer
// keywords deliberately exclude bank-brand tokens: a bank name appears on
// every receipt and must not itself classify the purchase as a transfer.
type categoryRule struct {
	category Category
	keywords []string
}

var categoryRules = []categoryRule{
	{CategoryFood, []string{
		"продукты", "супермаркет", "гастроном", "magnum", "small",
		"пекарня", "кафе", "ресторан", "бургер", "пицца", "столовая",
		"азық-түлік", "кофейня",
	}},
	{CategoryTransport, []string{
		"такси", "yandex go", "яндекс такси", "автобус", "проезд",
		"азс", "бензин", "заправка", "метро", "парковка", "автовокзал",
	}},
	{CategoryHealth, []string{
		"аптека", "дәріхана", "клиника", "медицин", "стоматолог",
		"анализ", "europharma", "больниц", "поликлиник",
	}},
	{CategoryEntertainment, []string{
		"кино", "cinema", "театр", "концерт", "боулинг", "развлечен",
		"аттракцион", "квест",
	}},
	{CategoryShopping, []string{
		"одежда", "обувь", "техника", "электроника", "wildberries",
		"ozon", "маркет", "бутик", "универмаг",
	}},
	{CategoryUtilities, []string{
		"коммунал", "электроэнергия", "квартплата", "отопление",
		"водоснабжение", "интернет", "связь", "beeline", "activ",
		"tele2", "казахтелеком",
	}},
	{CategoryEducation, []string{
		"школа", "курс", "обучение", "университет", "колледж",
		"образован", "учебн",
	}},
	{CategoryTransfer, []string{
		"перевод", "перечисление", "отправитель", "получатель",
		"transfer",
	}},
}

// suggestCategory returns the first category whose keyword set matches the
// text, or CategoryOther. It always returns exactly one category.
func suggestCategory(text string) Category {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
