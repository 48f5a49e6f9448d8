package config

import "doccalc/internal/params"

// DocumentConfig holds the ambient document attributes used when a batch
// file, or an eval invocation, declares none of its own.
type DocumentConfig struct {
	Author      string         `yaml:"author"`
	LicenseType string         `yaml:"calc_exp_license_type"`
	Attributes  map[string]any `yaml:"attributes"` // scalars; ~ is an explicit null
}

// DocumentParams returns the document layer described by the section.
// Author and license type take precedence over entries of the same name in
// Attributes.
func (c *Config) DocumentParams() params.Set {
	doc := params.FromMap(c.Document.Attributes)
	if c.Document.Author != "" {
		doc["author"] = params.Text(c.Document.Author)
	}
	if c.Document.LicenseType != "" {
		doc["calc_exp_license_type"] = params.Text(c.Document.LicenseType)
	}
	return doc
}
