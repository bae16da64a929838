package container

// ContextualBuilder overrides individual constructor parameters of one
// component without re-registering it.
//
//	c.When("report").Needs("title").Give("Q3 revenue")
type ContextualBuilder struct {
	container *Container
	key       string
	needs     string
}

// When starts a contextual override for the component registered under key.
func (c *Container) When(key string) *ContextualBuilder {
	return &ContextualBuilder{container: c, key: key}
}

// Needs names the constructor parameter to override.
func (b *ContextualBuilder) Needs(param string) *ContextualBuilder {
	b.needs = param
	return b
}

// Give supplies the value passed verbatim for the parameter. It takes
// precedence over arguments given to Set and drops any cached instance of
// the component so the next Get rebuilds it.
func (b *ContextualBuilder) Give(value any) {
	c := b.container
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.contextual[b.key]; !ok {
		c.contextual[b.key] = make(Args)
	}
	c.contextual[b.key][b.needs] = value
	delete(c.instances, b.key)
}
