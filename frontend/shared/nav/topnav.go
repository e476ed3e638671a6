package nav

// Item is one module link in the top navigation.
type Item struct {
	Label  string
	Href   string
	Active bool
}

var modules = []Item{
	{Label: "Dashboard", Href: "/"},
	{Label: "Embalagem", Href: "/embalagem"},
	{Label: "Shelf Life", Href: "/shelf-life"},
	{Label: "Configurações", Href: "/configuracoes"},
}

// BuildTopNav marks the module whose href matches active.
func BuildTopNav(active string) []Item {
	out := make([]Item, len(modules))
	for i, m := range modules {
		m.Active = m.Href == active
		out[i] = m
	}
	return out
}
