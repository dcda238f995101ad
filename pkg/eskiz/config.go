package eskiz

import "strings"

// Config carries the Eskiz gateway credentials.
type Config interface {
	URL() string
	Email() string
	Password() string
	From() string
}

type config struct {
	url      string
	email    string
	password string
	from     string
}

func NewConfig(url, email, password, from string) Config {
	return &config{
		url:      strings.TrimRight(strings.TrimSpace(url), "/"),
		email:    strings.TrimSpace(email),
		password: password,
		from:     strings.TrimSpace(from),
	}
}

func (c *config) URL() string      { return c.url }
func (c *config) Email() string    { return c.email }
func (c *config) Password() string { return c.password }
func (c *config) From() string     { return c.from }
