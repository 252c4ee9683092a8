package world

import "fmt"

// povertyLine is the coin total below which a chunk makes the news.
const povertyLine = 10

// News is the headline summary a client shows next to a chunk.
type News struct {
	Newscast []string
}

// InquireNews derives the headlines for c from the entities standing on it.
func (c *Chunk) InquireNews() News {
	var coins uint32
	for _, e := range c.Entities {
		coins += e.Inventory.Coins()
	}
	var news News
	if coins < povertyLine {
		news.Newscast = append(news.Newscast, fmt.Sprintf("absolute poorness in region %d,%d", c.Coords.X, c.Coords.Y))
	}
	return news
}
