package domain

// Product maps a short catalog key to its backing-store locator and the
// filename presented to the buyer. ObjectKey is relative to whichever blob
// source serves it (bucket prefix or local directory).
type Product struct {
	Key         string
	ObjectKey   string
	DisplayName string
}

// Catalog is the closed set of valid product keys, fixed at startup. Any key
// outside the set is rejected before file resolution is attempted.
type Catalog struct {
	products map[string]Product
	research map[string]Product
}

func NewCatalog(products, research []Product) *Catalog {
	c := &Catalog{
		products: make(map[string]Product, len(products)),
		research: make(map[string]Product, len(research)),
	}
	for _, p := range products {
		c.products[p.Key] = p
	}
	for _, p := range research {
		c.research[p.Key] = p
	}
	return c
}

// DefaultCatalog returns the shipped catalog: the purchasable book (and its
// bundle packaging) plus the freely downloadable research papers.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		[]Product{
			{Key: "book", ObjectKey: "books/book.pdf", DisplayName: "The-Path-to-Purpose.pdf"},
			{Key: "bundle", ObjectKey: "books/bundle.pdf", DisplayName: "The-Path-to-Purpose-Bundle.pdf"},
		},
		[]Product{
			{Key: "ai-job-security", ObjectKey: "books/ai-job-security-human-condition.pdf", DisplayName: "AI-Job-Security-and-the-Human-Condition.pdf"},
		},
	)
}

func (c *Catalog) Product(key string) (Product, bool) {
	p, ok := c.products[key]
	return p, ok
}

func (c *Catalog) ResearchPaper(id string) (Product, bool) {
	p, ok := c.research[id]
	return p, ok
}
