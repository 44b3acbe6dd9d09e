package dto

import "shamsa/internal/domain/shop"

type Emoji struct {
	ID    string `json:"id"`
	Glyph string `json:"glyph"`
	Name  string `json:"name"`
	Price int    `json:"price"`
	Owned bool   `json:"owned"`
}

type EmojiCatalog struct {
	Items   []Emoji `json:"items"`
	Dragons int     `json:"dragons"`
}

type PurchaseResponse struct {
	Emoji   Emoji `json:"emoji"`
	Dragons int   `json:"dragons"`
}

func MapEmoji(e shop.Emoji, owned bool) Emoji {
	return Emoji{
		ID:    e.ID,
		Glyph: e.Glyph,
		Name:  e.Name,
		Price: e.Price,
		Owned: owned,
	}
}

func MapCatalog(items []shop.Emoji, owned func(string) bool, dragons int) EmojiCatalog {
	catalog := EmojiCatalog{
		Items:   make([]Emoji, 0, len(items)),
		Dragons: dragons,
	}
	for _, e := range items {
		catalog.Items = append(catalog.Items, MapEmoji(e, owned != nil && owned(e.ID)))
	}
	return catalog
}
