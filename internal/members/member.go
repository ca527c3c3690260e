package members

// Default widget colors applied per field when a member leaves one out.
const (
	DefaultTextColor    = "#000000"
	DefaultBorderColor  = "#000000"
	DefaultLinksColor   = "#0000ee"
	DefaultOnLinksColor = "#ffffff"
)

// Colors styles a member's embed widget.
type Colors struct {
	Text    string `json:"text"`
	Border  string `json:"border"`
	Links   string `json:"links"`
	OnLinks string `json:"on_links"`
}

// Member is one site in the ring. A registry load produces a fresh slice of
// members; nothing mutates a Member after it is loaded.
type Member struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Colors      Colors   `json:"colors"`
	FontStack   *string  `json:"font_stack"`
	FontSize    *string  `json:"font_size"`
	Stylesheets []string `json:"stylesheets"`
}

func (c Colors) withDefaults() Colors {
	if c.Text == "" {
		c.Text = DefaultTextColor
	}
	if c.Border == "" {
		c.Border = DefaultBorderColor
	}
	if c.Links == "" {
		c.Links = DefaultLinksColor
	}
	if c.OnLinks == "" {
		c.OnLinks = DefaultOnLinksColor
	}
	return c
}
