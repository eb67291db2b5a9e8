package library

// Page selects a window of an ordered listing. The zero Page selects everything.
type Page struct {
	// Limit is the page size; zero or less means no limit.
	Limit int
	// Number counts pages from 0.
	Number int
}

func paginate[T any](items []T, p Page) []T {
	if p.Limit <= 0 {
		return items
	}
	pages := (len(items) + p.Limit - 1) / p.Limit
	if p.Number < 0 || p.Number >= pages {
		return []T{}
	}
	start := p.Number * p.Limit
	end := min(start+p.Limit, len(items))
	return items[start:end]
}
