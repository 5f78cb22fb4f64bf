package config

import (
	"net/url"
	"strings"
)

// LinkVars holds variables for link template expansion.
type LinkVars struct {
	DandisetID string
	SubjectID  string
	AssetID    string
	Hash       string // Navigation hash without the leading '#'
}

// ExpandLink performs variable substitution on a link template.
// Uses single-pass replacement so values are never expanded twice.
// Supported variables: {{.DandisetID}}, {{.SubjectID}}, {{.AssetID}}, {{.Hash}}
func ExpandLink(template string, vars LinkVars) string {
	r := strings.NewReplacer(
		"{{.DandisetID}}", url.PathEscape(vars.DandisetID),
		"{{.SubjectID}}", url.PathEscape(vars.SubjectID),
		"{{.AssetID}}", url.PathEscape(vars.AssetID),
		"{{.Hash}}", vars.Hash,
	)
	return r.Replace(template)
}

// DandisetLink returns the archive link of a dandiset, or "" when the
// template is disabled.
func (c *Config) DandisetLink(dandisetID string) string {
	if c.Links.Dandiset == "" || dandisetID == "" {
		return ""
	}
	return ExpandLink(c.Links.Dandiset, LinkVars{DandisetID: dandisetID})
}

// ViewLink returns the shareable link of a navigation hash.
func (c *Config) ViewLink(vars LinkVars) string {
	tmpl := c.Links.View
	if tmpl == "" {
		tmpl = DefaultViewLink
	}
	return ExpandLink(tmpl, vars)
}
