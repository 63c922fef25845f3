package classify

// Classifier bundles the immutable bot and path rules. It is built once at
// process start and handed to the parser.
type Classifier struct {
	Bots  *BotMatcher
	Admin *AdminPaths
}

func New(bots *BotMatcher, admin *AdminPaths) *Classifier {
	return &Classifier{Bots: bots, Admin: admin}
}

func (c *Classifier) IsBot(userAgent string) bool {
	return c.Bots.IsBot(userAgent)
}

func (c *Classifier) IsAdminTech(path string) bool {
	return c.Admin.IsAdminTech(path)
}
