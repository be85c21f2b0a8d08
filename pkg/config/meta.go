package config

// Meta holds build and project metadata
type Meta struct {
	ID      string
	Name    string
	Desc    string
	URL     string
	Author  string
	Version string
}
