package app

import "github.com/carlfalc/offer-direct-stays/internal/database"

// DatabaseOpenConfig converts DatabaseConfig into the database package representation.
func (c DatabaseConfig) DatabaseOpenConfig() database.Config {
	return database.Config{
		Driver:   c.Driver,
		Path:     c.Path,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		Name:     c.Name,
		User:     c.User,
		Password: c.Password,
	}
}
